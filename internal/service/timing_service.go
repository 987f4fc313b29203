package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

type timingFileStore interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	UpdateTiming(ctx context.Context, id string, remaining *int64, percentage float64) error
	ListOpenTimed(ctx context.Context) ([]models.File, error)
}

type businessCalendar interface {
	BusinessSecondsBetween(ctx context.Context, from, to time.Time) (int64, error)
	AddBusinessDays(ctx context.Context, start time.Time, n int) (time.Time, error)
}

// TimingService recomputes the remaining time budget of files. Remaining time
// is derived from the due date on every recompute; the persisted value is a
// display projection.
type TimingService struct {
	files    timingFileStore
	calendar businessCalendar
	logger   *zap.Logger
	now      func() time.Time
}

// TimingServiceOption configures the service.
type TimingServiceOption func(*TimingService)

// WithTimingClock overrides the clock, for tests.
func WithTimingClock(now func() time.Time) TimingServiceOption {
	return func(s *TimingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTimingService constructs a TimingService.
func NewTimingService(files timingFileStore, calendar businessCalendar, logger *zap.Logger, opts ...TimingServiceOption) *TimingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TimingService{
		files:    files,
		calendar: calendar,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// CalculateTimeRemaining returns the business seconds until the file's due
// date (negative once overdue) and the display percentage clamped to [0,100].
// Files without a due date are untimed and yield a nil remaining.
func (s *TimingService) CalculateTimeRemaining(ctx context.Context, file *models.File, now time.Time) (*int64, float64, error) {
	if file.DueDate == nil {
		return nil, 0, nil
	}
	remaining, err := s.calendar.BusinessSecondsBetween(ctx, now, *file.DueDate)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute business time")
	}
	return &remaining, timerPercentage(remaining, file.AllottedTime), nil
}

// UpdateTimeRemaining recomputes and persists a single file's timer fields.
func (s *TimingService) UpdateTimeRemaining(ctx context.Context, fileID string) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file not found")
	}
	remaining, percentage, err := s.CalculateTimeRemaining(ctx, file, s.now())
	if err != nil {
		return err
	}
	if remaining == nil {
		return nil
	}
	if err := s.files.UpdateTiming(ctx, file.ID, remaining, percentage); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timing")
	}
	return nil
}

// UpdateAllTimeRemaining refreshes timers for every open, non-held file with
// a due date. Individual failures are logged and skipped so one bad row does
// not stall the refresh.
func (s *TimingService) UpdateAllTimeRemaining(ctx context.Context) (int, error) {
	files, err := s.files.ListOpenTimed(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open files")
	}
	now := s.now()
	updated := 0
	for i := range files {
		file := &files[i]
		remaining, percentage, err := s.CalculateTimeRemaining(ctx, file, now)
		if err != nil {
			s.logger.Warn("timer recompute failed", zap.String("file_id", file.ID), zap.Error(err))
			continue
		}
		if remaining == nil {
			continue
		}
		if err := s.files.UpdateTiming(ctx, file.ID, remaining, percentage); err != nil {
			s.logger.Warn("timer persist failed", zap.String("file_id", file.ID), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// timerPercentage clamps the remaining/allotted ratio to [0,100] for display.
// The raw remaining value keeps its sign; only the percentage is clamped.
func timerPercentage(remaining, allotted int64) float64 {
	if allotted <= 0 || remaining <= 0 {
		return 0
	}
	pct := float64(remaining) / float64(allotted) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
