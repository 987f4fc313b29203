package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweeperStub struct {
	calls int32
	swept int
}

func (s *sweeperStub) Sweep(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.swept, nil
}

type timerStub struct {
	calls int32
}

func (s *timerStub) UpdateAllTimeRemaining(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return 0, nil
}

type bonusStub struct {
	periods []string
}

func (s *bonusStub) RunMonthlyBonus(ctx context.Context, period string) error {
	s.periods = append(s.periods, period)
	return nil
}

type observerStub struct {
	sweeps    int
	redListed int
}

func (o *observerStub) ObserveSweep(time.Duration) {}

func (o *observerStub) IncFilesRedListed(n int) {
	o.sweeps++
	o.redListed += n
}

func TestSchedulerRunSweepRecordsMetrics(t *testing.T) {
	sw := &sweeperStub{swept: 3}
	obs := &observerStub{}
	s := New(sw, &timerStub{}, &bonusStub{}, obs, nil, nil, Config{SweepEnabled: true})

	s.runSweep(context.Background())

	assert.EqualValues(t, 1, sw.calls)
	assert.Equal(t, 3, obs.redListed)
}

func TestSchedulerMonthlyBonusSettlesClosedPeriod(t *testing.T) {
	bonus := &bonusStub{}
	s := New(&sweeperStub{}, &timerStub{}, bonus, nil, nil, nil, Config{},
		WithClock(func() time.Time { return time.Date(2026, time.September, 1, 0, 30, 0, 0, time.UTC) }),
	)

	// Half an hour into September only August is complete enough to grade.
	s.runMonthlyBonus(context.Background())

	require.Len(t, bonus.periods, 1)
	assert.Equal(t, "2026-08", bonus.periods[0])
}

func TestSchedulerMonthlyBonusMidMonthStillGradesPreviousPeriod(t *testing.T) {
	bonus := &bonusStub{}
	s := New(&sweeperStub{}, &timerStub{}, bonus, nil, nil, nil, Config{},
		WithClock(func() time.Time { return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) }),
	)

	s.runMonthlyBonus(context.Background())

	require.Len(t, bonus.periods, 1)
	assert.Equal(t, "2026-07", bonus.periods[0])
}

func TestSchedulerStartStopDrainsLoops(t *testing.T) {
	sw := &sweeperStub{}
	timer := &timerStub{}
	s := New(sw, timer, &bonusStub{}, nil, nil, nil, Config{
		SweepEnabled:    true,
		SweepInterval:   5 * time.Millisecond,
		RefreshInterval: 5 * time.Millisecond,
		BonusCheck:      time.Hour,
	})

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Greater(t, atomic.LoadInt32(&sw.calls), int32(0))
	assert.Greater(t, atomic.LoadInt32(&timer.calls), int32(0))
}
