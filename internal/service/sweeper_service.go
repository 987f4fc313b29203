package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

type sweepFileStore interface {
	ListSweepCandidates(ctx context.Context, now time.Time) ([]models.File, error)
	MarkRedListed(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateTiming(ctx context.Context, id string, remaining *int64, percentage float64) error
}

type remainingCalculator interface {
	CalculateTimeRemaining(ctx context.Context, file *models.File, now time.Time) (*int64, float64, error)
}

// SweeperService scans for overdue files and red-lists them. The stored
// time_remaining is only a projection; the sweeper recomputes from the due
// date before penalising so a stale cache never costs anyone points. The
// conditional red-list update makes concurrent sweeps safe: whichever sweep
// flips the flag applies the penalty, the rest see a no-op.
type SweeperService struct {
	files  sweepFileStore
	timer  remainingCalculator
	ledger IncentiveLedger
	users  adminDirectory

	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// SweeperServiceOption mutates construction-time wiring.
type SweeperServiceOption func(*SweeperService)

// WithSweeperClock overrides the wall clock, used by tests.
func WithSweeperClock(now func() time.Time) SweeperServiceOption {
	return func(s *SweeperService) {
		s.now = now
	}
}

// NewSweeperService constructs the sweeper.
func NewSweeperService(
	files sweepFileStore,
	timer remainingCalculator,
	ledger IncentiveLedger,
	users adminDirectory,
	publisher Publisher,
	logger *zap.Logger,
	opts ...SweeperServiceOption,
) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	s := &SweeperService{
		files:     files,
		timer:     timer,
		ledger:    ledger,
		users:     users,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one pass and returns how many files it red-listed. A failure on
// one file never stops the rest of the pass.
func (s *SweeperService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.files.ListSweepCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list sweep candidates: %w", err)
	}

	swept := 0
	for i := range candidates {
		file := &candidates[i]
		ok, err := s.sweepOne(ctx, file, now)
		if err != nil {
			s.logger.Error("sweep failed for file", zap.String("file_id", file.ID), zap.Error(err))
			continue
		}
		if ok {
			swept++
		}
	}
	if swept > 0 {
		s.logger.Info("red-list sweep complete", zap.Int("red_listed", swept), zap.Int("candidates", len(candidates)))
	}
	return swept, nil
}

func (s *SweeperService) sweepOne(ctx context.Context, file *models.File, now time.Time) (bool, error) {
	// Recompute from the due date; the stored projection may be stale.
	remaining, percentage, err := s.timer.CalculateTimeRemaining(ctx, file, now)
	if err != nil {
		return false, fmt.Errorf("recompute remaining: %w", err)
	}
	deskOverdue := file.DeskDueDate != nil && !file.DeskDueDate.After(now)
	if remaining != nil && *remaining > 0 && !deskOverdue {
		// Still has time; refresh the projection and move on.
		if err := s.files.UpdateTiming(ctx, file.ID, remaining, percentage); err != nil {
			s.logger.Warn("timing refresh failed", zap.String("file_id", file.ID), zap.Error(err))
		}
		return false, nil
	}

	flipped, err := s.files.MarkRedListed(ctx, file.ID, now)
	if err != nil {
		return false, fmt.Errorf("mark red-listed: %w", err)
	}
	if !flipped {
		// Another sweep got here first.
		return false, nil
	}

	if file.AssignedToID != nil {
		holder := *file.AssignedToID
		if err := s.ledger.ApplyRedListPenalty(ctx, holder, file.ID); err != nil {
			s.logger.Error("red-list penalty failed", zap.String("file_id", file.ID), zap.String("user_id", holder), zap.Error(err))
		}
		s.publisher.Publish(models.NotificationEvent{
			UserID:   holder,
			Type:     models.NotifyFileRedListed,
			Title:    "File red-listed",
			Message:  fmt.Sprintf("File %s is overdue and has been red-listed.", file.FileNumber),
			FileID:   &file.ID,
			Priority: models.NotificationUrgent,
		})
	}
	s.notifyAdmins(ctx, file)
	return true, nil
}

func (s *SweeperService) notifyAdmins(ctx context.Context, file *models.File) {
	admins, err := s.users.ListAdminsByDepartment(ctx, file.DepartmentID)
	if err != nil {
		s.logger.Warn("admin lookup failed", zap.String("department_id", file.DepartmentID), zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.publisher.Publish(models.NotificationEvent{
			UserID:  admin.ID,
			Type:    models.NotifyAdminRedList,
			Title:   "File red-listed",
			Message: fmt.Sprintf("File %s in your department has been red-listed.", file.FileNumber),
			FileID:  &file.ID,
		})
	}
}
