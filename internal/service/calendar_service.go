package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

type holidayLister interface {
	List(ctx context.Context) ([]models.Holiday, error)
}

// CalendarServiceConfig tunes business-day arithmetic.
type CalendarServiceConfig struct {
	WeekendDays     []string
	HolidayCacheTTL time.Duration
}

// CalendarService answers business-time questions: which days are working
// days and how many business seconds separate two instants.
type CalendarService struct {
	holidays holidayLister
	logger   *zap.Logger

	weekend  map[time.Weekday]bool
	cacheTTL time.Duration

	mu        sync.Mutex
	cache     map[string]bool
	recurring map[string]bool
	cachedAt  time.Time
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(holidays holidayLister, logger *zap.Logger, cfg CalendarServiceConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	weekend := make(map[time.Weekday]bool)
	if len(cfg.WeekendDays) == 0 {
		cfg.WeekendDays = []string{"Saturday", "Sunday"}
	}
	for _, name := range cfg.WeekendDays {
		if day, ok := weekdayByName(name); ok {
			weekend[day] = true
		}
	}
	ttl := cfg.HolidayCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CalendarService{
		holidays: holidays,
		logger:   logger,
		weekend:  weekend,
		cacheTTL: ttl,
	}
}

// IsHoliday reports whether the date matches a configured holiday.
func (s *CalendarService) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	exact, recurring, err := s.holidaySets(ctx)
	if err != nil {
		return false, err
	}
	date = date.UTC()
	if exact[date.Format("2006-01-02")] {
		return true, nil
	}
	return recurring[date.Format("01-02")], nil
}

// IsBusinessDay reports whether the date is a working day.
func (s *CalendarService) IsBusinessDay(ctx context.Context, date time.Time) (bool, error) {
	if s.weekend[date.UTC().Weekday()] {
		return false, nil
	}
	holiday, err := s.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}
	return !holiday, nil
}

// AddBusinessDays advances start by n working days. n=0 returns start unchanged.
func (s *CalendarService) AddBusinessDays(ctx context.Context, start time.Time, n int) (time.Time, error) {
	cur := start
	for added := 0; added < n; {
		cur = cur.AddDate(0, 0, 1)
		business, err := s.IsBusinessDay(ctx, cur)
		if err != nil {
			return time.Time{}, err
		}
		if business {
			added++
		}
	}
	return cur, nil
}

// BusinessSecondsBetween returns the whole business seconds separating from
// and to; negative when to precedes from. Partial days count their in-day
// seconds; weekends and holidays contribute nothing.
func (s *CalendarService) BusinessSecondsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	from = from.UTC()
	to = to.UTC()
	if to.Before(from) {
		forward, err := s.BusinessSecondsBetween(ctx, to, from)
		if err != nil {
			return 0, err
		}
		return -forward, nil
	}

	var total int64
	cur := from
	for cur.Before(to) {
		dayEnd := startOfDay(cur).AddDate(0, 0, 1)
		sliceEnd := dayEnd
		if to.Before(dayEnd) {
			sliceEnd = to
		}
		business, err := s.IsBusinessDay(ctx, cur)
		if err != nil {
			return 0, err
		}
		if business {
			total += int64(sliceEnd.Sub(cur) / time.Second)
		}
		cur = dayEnd
	}
	return total, nil
}

func (s *CalendarService) holidaySets(ctx context.Context) (map[string]bool, map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && time.Since(s.cachedAt) < s.cacheTTL {
		return s.cache, s.recurring, nil
	}
	holidays, err := s.holidays.List(ctx)
	if err != nil {
		if s.cache != nil {
			s.logger.Warn("holiday refresh failed, using stale cache", zap.Error(err))
			return s.cache, s.recurring, nil
		}
		return nil, nil, err
	}
	exact := make(map[string]bool, len(holidays))
	recurring := make(map[string]bool)
	for _, h := range holidays {
		d := h.Date.UTC()
		if h.Recurring {
			recurring[d.Format("01-02")] = true
			continue
		}
		exact[d.Format("2006-01-02")] = true
	}
	s.cache = exact
	s.recurring = recurring
	s.cachedAt = time.Now()
	return exact, recurring, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func weekdayByName(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}
