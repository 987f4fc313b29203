package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

type thresholdsStub map[string]int

func (s thresholdsStub) Int(ctx context.Context, key string) int { return s[key] }

type publisherStub struct {
	events []models.NotificationEvent
}

func (p *publisherStub) Publish(event models.NotificationEvent) {
	p.events = append(p.events, event)
}

func (p *publisherStub) ofType(kind models.NotificationType) []models.NotificationEvent {
	var out []models.NotificationEvent
	for _, e := range p.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

type pointsStoreStub struct {
	accounts     map[string]*models.UserPoints
	transactions []models.PointsTransaction
	bonusPeriods map[string]bool
	penalties    map[string]int
}

func newPointsStoreStub() *pointsStoreStub {
	return &pointsStoreStub{
		accounts:     make(map[string]*models.UserPoints),
		bonusPeriods: make(map[string]bool),
		penalties:    make(map[string]int),
	}
}

func (s *pointsStoreStub) EnsureAccount(ctx context.Context, userID string, basePoints int64) error {
	if _, ok := s.accounts[userID]; !ok {
		s.accounts[userID] = &models.UserPoints{UserID: userID, BasePoints: basePoints, CurrentPoints: basePoints}
	}
	return nil
}

func (s *pointsStoreStub) ApplyDelta(ctx context.Context, txRecord *models.PointsTransaction) (int64, error) {
	account := s.accounts[txRecord.UserID]
	account.CurrentPoints += txRecord.Amount
	s.transactions = append(s.transactions, *txRecord)
	if txRecord.Reason == models.TxReasonRedListPenalty {
		s.penalties[txRecord.UserID]++
	}
	if txRecord.Period != nil {
		s.bonusPeriods[txRecord.UserID+"/"+*txRecord.Period] = true
	}
	return account.CurrentPoints, nil
}

func (s *pointsStoreStub) Get(ctx context.Context, userID string) (*models.UserPoints, error) {
	account, ok := s.accounts[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return account, nil
}

func (s *pointsStoreStub) SumTransactions(ctx context.Context, userID string) (int64, error) {
	var sum int64
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (s *pointsStoreStub) CountPenaltiesInPeriod(ctx context.Context, userID, period string) (int, error) {
	return s.penalties[userID], nil
}

func (s *pointsStoreStub) HasBonusForPeriod(ctx context.Context, userID, period string) (bool, error) {
	return s.bonusPeriods[userID+"/"+period], nil
}

func (s *pointsStoreStub) SetStreak(ctx context.Context, userID string, streak int) error {
	s.accounts[userID].MonthlyStreak = streak
	return nil
}

func (s *pointsStoreStub) ListAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range s.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

func incentiveSettings() thresholdsStub {
	return thresholdsStub{
		SettingRedListPenalty:     50,
		SettingMonthlyBonus:       100,
		SettingCompletionReward:   20,
		SettingLowPointsThreshold: 500,
		SettingRedFlagWarnCount:   3,
		SettingRedFlagSevereCount: 5,
		SettingOptimumHours:       4,
		SettingCoinOptimalReward:  10,
		SettingCoinExcessReward:   15,
		SettingDeskVolumeCount:    3,
	}
}

func TestPointsLedgerPenaltyAndLowPointsCrossing(t *testing.T) {
	store := newPointsStoreStub()
	publisher := &publisherStub{}
	ledger := NewPointsLedger(store, incentiveSettings(), publisher, nil, 1000)
	ctx := context.Background()

	// Walk the balance down to just above the threshold.
	require.NoError(t, store.EnsureAccount(ctx, "u1", 1000))
	store.accounts["u1"].CurrentPoints = 520

	require.NoError(t, ledger.ApplyRedListPenalty(ctx, "u1", "f1"))
	assert.Equal(t, int64(470), store.accounts["u1"].CurrentPoints)
	require.Len(t, publisher.ofType(models.NotifyLowPoints), 1)

	// Already below the threshold; no second warning.
	require.NoError(t, ledger.ApplyRedListPenalty(ctx, "u1", "f2"))
	assert.Equal(t, int64(420), store.accounts["u1"].CurrentPoints)
	assert.Len(t, publisher.ofType(models.NotifyLowPoints), 1)
}

func TestPointsLedgerCompletionRewardOnlyWithTimeLeft(t *testing.T) {
	store := newPointsStoreStub()
	ledger := NewPointsLedger(store, incentiveSettings(), nil, nil, 1000)
	ctx := context.Background()

	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f1", 0))
	assert.Empty(t, store.transactions)

	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f1", 3600))
	require.Len(t, store.transactions, 1)
	assert.Equal(t, int64(20), store.transactions[0].Amount)
	assert.Equal(t, models.TxReasonCompletionReward, store.transactions[0].Reason)
}

func TestPointsLedgerMonthlyBonusIdempotentPerPeriod(t *testing.T) {
	store := newPointsStoreStub()
	ledger := NewPointsLedger(store, incentiveSettings(), nil, nil, 1000)
	ctx := context.Background()
	require.NoError(t, store.EnsureAccount(ctx, "u1", 1000))

	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-08"))
	assert.Equal(t, int64(1100), store.accounts["u1"].CurrentPoints)
	assert.Equal(t, 1, store.accounts["u1"].MonthlyStreak)

	// Re-running the same period grants nothing more.
	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-08"))
	assert.Equal(t, int64(1100), store.accounts["u1"].CurrentPoints)
	assert.Equal(t, 1, store.accounts["u1"].MonthlyStreak)
}

func TestPointsLedgerMonthlyBonusResetsStreakOnPenalty(t *testing.T) {
	store := newPointsStoreStub()
	ledger := NewPointsLedger(store, incentiveSettings(), nil, nil, 1000)
	ctx := context.Background()
	require.NoError(t, store.EnsureAccount(ctx, "u1", 1000))
	store.accounts["u1"].MonthlyStreak = 4
	store.penalties["u1"] = 2

	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-08"))
	assert.Equal(t, int64(1000), store.accounts["u1"].CurrentPoints)
	assert.Zero(t, store.accounts["u1"].MonthlyStreak)
}

func TestPointsLedgerReconcile(t *testing.T) {
	store := newPointsStoreStub()
	ledger := NewPointsLedger(store, incentiveSettings(), nil, nil, 1000)
	ctx := context.Background()
	require.NoError(t, store.EnsureAccount(ctx, "u1", 1000))

	require.NoError(t, ledger.ApplyRedListPenalty(ctx, "u1", "f1"))
	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f2", 3600))

	ok, err := ledger.Reconcile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Tamper with the balance; the invariant must break.
	store.accounts["u1"].CurrentPoints += 7
	ok, err = ledger.Reconcile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

type coinStoreStub struct {
	wallets      map[string]*models.CoinWallet
	transactions []models.CoinTransaction
	flags        []models.RedFlag
	badges       []models.UserBadge
}

func newCoinStoreStub() *coinStoreStub {
	return &coinStoreStub{wallets: make(map[string]*models.CoinWallet)}
}

func (s *coinStoreStub) EnsureWallet(ctx context.Context, userID string) error {
	if _, ok := s.wallets[userID]; !ok {
		s.wallets[userID] = &models.CoinWallet{UserID: userID}
	}
	return nil
}

func (s *coinStoreStub) ApplyDelta(ctx context.Context, txRecord *models.CoinTransaction) (int64, error) {
	wallet := s.wallets[txRecord.UserID]
	wallet.Balance += txRecord.Amount
	s.transactions = append(s.transactions, *txRecord)
	return wallet.Balance, nil
}

func (s *coinStoreStub) GetWallet(ctx context.Context, userID string) (*models.CoinWallet, error) {
	wallet, ok := s.wallets[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return wallet, nil
}

func (s *coinStoreStub) SumTransactions(ctx context.Context, userID string) (int64, error) {
	var sum int64
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (s *coinStoreStub) CountCompletionsInPeriod(ctx context.Context, userID, period string) (int, error) {
	count := 0
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if tx.Reason == models.TxReasonOptimalHours || tx.Reason == models.TxReasonExcessThroughput {
			count++
		}
	}
	return count, nil
}

func (s *coinStoreStub) CreateRedFlag(ctx context.Context, flag *models.RedFlag) (int, error) {
	s.flags = append(s.flags, *flag)
	wallet := s.wallets[flag.UserID]
	wallet.RedFlagCount++
	return wallet.RedFlagCount, nil
}

func (s *coinStoreStub) AwardBadge(ctx context.Context, badge *models.UserBadge) error {
	for _, existing := range s.badges {
		if existing.UserID == badge.UserID && existing.Badge == badge.Badge && existing.Period == badge.Period {
			return nil
		}
	}
	s.badges = append(s.badges, *badge)
	return nil
}

func TestCoinLedgerRedFlagSeverityAndThreshold(t *testing.T) {
	store := newCoinStoreStub()
	publisher := &publisherStub{}
	ledger := NewCoinLedger(store, incentiveSettings(), publisher, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.ApplyRedListPenalty(ctx, "u1", "f1"))
	}
	require.Len(t, store.flags, 5)
	assert.Equal(t, models.RedFlagWarning, store.flags[0].Severity)
	assert.Equal(t, models.RedFlagWarning, store.flags[3].Severity)
	assert.Equal(t, models.RedFlagSevere, store.flags[4].Severity)

	// The threshold alert fires exactly once, at the third flag.
	assert.Len(t, publisher.ofType(models.NotifyRedFlagThreshold), 1)
}

func TestCoinLedgerThroughputRewards(t *testing.T) {
	store := newCoinStoreStub()
	ledger := NewCoinLedger(store, incentiveSettings(), nil, nil,
		WithCoinClock(func() time.Time { return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) }))
	ctx := context.Background()

	// Four optimum hours is 14400 seconds; at or above earns the optimal rate.
	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f1", 20000))
	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f2", 600))
	require.NoError(t, ledger.AwardCompletion(ctx, "u1", "f3", 0))

	require.Len(t, store.transactions, 2)
	assert.Equal(t, models.TxReasonOptimalHours, store.transactions[0].Reason)
	assert.Equal(t, int64(10), store.transactions[0].Amount)
	assert.Equal(t, models.TxReasonExcessThroughput, store.transactions[1].Reason)
	assert.Equal(t, int64(15), store.transactions[1].Amount)
	assert.Equal(t, int64(25), store.wallets["u1"].Balance)

	// Each completion leaves the matching hours badge for the month.
	require.Len(t, store.badges, 2)
	assert.Equal(t, models.BadgeLowHours, store.badges[0].Badge)
	assert.Equal(t, models.BadgeExtendedHours, store.badges[1].Badge)
	assert.Equal(t, "2026-08", store.badges[0].Period)
}

func TestCoinLedgerDeskVolumeBadge(t *testing.T) {
	store := newCoinStoreStub()
	ledger := NewCoinLedger(store, incentiveSettings(), nil, nil,
		WithCoinClock(func() time.Time { return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.AwardCompletion(ctx, "u1", fmt.Sprintf("f%d", i), 20000))
	}
	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-08"))

	var awarded []models.Badge
	for _, badge := range store.badges {
		awarded = append(awarded, badge.Badge)
	}
	assert.Contains(t, awarded, models.BadgeDeskVolume)
	assert.Contains(t, awarded, models.BadgeMomentum)
}

func TestCoinLedgerMonthlyBadgeOnlyForCleanMonth(t *testing.T) {
	store := newCoinStoreStub()
	ledger := NewCoinLedger(store, incentiveSettings(), nil, nil)
	ctx := context.Background()

	require.NoError(t, store.EnsureWallet(ctx, "u1"))
	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-08"))
	require.Len(t, store.badges, 1)
	assert.Equal(t, models.BadgeMomentum, store.badges[0].Badge)

	store.wallets["u1"].RedFlagCount = 1
	require.NoError(t, ledger.ApplyMonthlyBonus(ctx, "u1", "2026-09"))
	assert.Len(t, store.badges, 1)
}

func TestIncentiveServiceFansOutToAllLedgers(t *testing.T) {
	points := newPointsStoreStub()
	coins := newCoinStoreStub()
	settings := incentiveSettings()
	svc := NewIncentiveService(points, coins, nil,
		NewPointsLedger(points, settings, nil, nil, 1000),
		NewCoinLedger(coins, settings, nil, nil),
	)
	ctx := context.Background()

	require.NoError(t, svc.ApplyRedListPenalty(ctx, "u1", "f1"))
	assert.Len(t, points.transactions, 1)
	assert.Len(t, coins.flags, 1)

	require.NoError(t, svc.AwardCompletion(ctx, "u1", "f2", 20000))
	assert.Len(t, points.transactions, 2)
	assert.Len(t, coins.transactions, 1)
}
