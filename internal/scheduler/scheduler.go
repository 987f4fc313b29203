package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type timerRefresher interface {
	UpdateAllTimeRemaining(ctx context.Context) (int, error)
}

type bonusRunner interface {
	RunMonthlyBonus(ctx context.Context, period string) error
}

type sweepObserver interface {
	ObserveSweep(duration time.Duration)
	IncFilesRedListed(n int)
}

// Config tunes the background job cadence.
type Config struct {
	SweepEnabled    bool
	SweepInterval   time.Duration
	SweepLease      time.Duration
	RefreshInterval time.Duration
	BonusCheck      time.Duration
}

// Scheduler drives the periodic jobs: the red-list sweep, the timer refresh
// and the monthly bonus run. Redis markers keep multi-instance deployments
// from running the same pass twice.
type Scheduler struct {
	sweeper sweeper
	timer   timerRefresher
	bonus   bonusRunner
	metrics sweepObserver
	redis   *redis.Client
	logger  *zap.Logger
	cfg     Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// Option mutates construction-time wiring.
type Option func(*Scheduler)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New constructs a Scheduler.
func New(sw sweeper, timer timerRefresher, bonus bonusRunner, metrics sweepObserver, redisClient *redis.Client, logger *zap.Logger, cfg Config, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.SweepLease <= 0 {
		cfg.SweepLease = 10 * time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.BonusCheck <= 0 {
		cfg.BonusCheck = 6 * time.Hour
	}
	s := &Scheduler{
		sweeper: sw,
		timer:   timer,
		bonus:   bonus,
		metrics: metrics,
		redis:   redisClient,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start boots the job loops. Call Stop to drain them.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.SweepEnabled {
		s.loop(ctx, s.cfg.SweepInterval, s.runSweep)
	}
	s.loop(ctx, s.cfg.RefreshInterval, s.runRefresh)
	s.loop(ctx, s.cfg.BonusCheck, s.runMonthlyBonus)
}

// Stop cancels the loops and waits for in-flight passes to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	s.wg.Add(1)
	ticker := time.NewTicker(interval)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run(ctx)
			}
		}
	}()
}

// runSweep takes a short redis lease so only one instance sweeps per tick.
func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.acquire(ctx, "sweep:lease", s.cfg.SweepLease) {
		return
	}
	start := s.now()
	swept, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("red-list sweep failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveSweep(time.Since(start))
		s.metrics.IncFilesRedListed(swept)
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	updated, err := s.timer.UpdateAllTimeRemaining(ctx)
	if err != nil {
		s.logger.Error("timer refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("timer refresh complete", zap.Int("updated", updated))
}

// runMonthlyBonus settles the month that just closed; the running month
// cannot be judged until it ends. The SETNX marker survives restarts and
// keeps other instances from double-granting.
func (s *Scheduler) runMonthlyBonus(ctx context.Context) {
	now := s.now().UTC()
	period := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -1).Format("2006-01")
	if !s.acquire(ctx, fmt.Sprintf("incentive:bonus:%s", period), 32*24*time.Hour) {
		return
	}
	if err := s.bonus.RunMonthlyBonus(ctx, period); err != nil {
		s.logger.Error("monthly bonus run failed", zap.String("period", period), zap.Error(err))
	}
}

// acquire claims a redis marker. Without redis every instance runs the job;
// the ledger-level period guards still keep grants idempotent.
func (s *Scheduler) acquire(ctx context.Context, key string, ttl time.Duration) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, "filetrack:"+key, s.now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		s.logger.Warn("redis marker failed, running anyway", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}
