package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

// IncentiveLedger is the contract the state machine and sweeper drive. Two
// implementations coexist: the legacy points balance and the coin economy.
// They are deliberately not merged; see DESIGN.md.
type IncentiveLedger interface {
	ApplyRedListPenalty(ctx context.Context, userID, fileID string) error
	AwardCompletion(ctx context.Context, userID, fileID string, remainingSeconds int64) error
	ApplyMonthlyBonus(ctx context.Context, userID, period string) error
}

type thresholds interface {
	Int(ctx context.Context, key string) int
}

type pointsStore interface {
	EnsureAccount(ctx context.Context, userID string, basePoints int64) error
	ApplyDelta(ctx context.Context, txRecord *models.PointsTransaction) (int64, error)
	Get(ctx context.Context, userID string) (*models.UserPoints, error)
	SumTransactions(ctx context.Context, userID string) (int64, error)
	CountPenaltiesInPeriod(ctx context.Context, userID, period string) (int, error)
	HasBonusForPeriod(ctx context.Context, userID, period string) (bool, error)
	SetStreak(ctx context.Context, userID string, streak int) error
	ListAccountIDs(ctx context.Context) ([]string, error)
}

type coinStore interface {
	EnsureWallet(ctx context.Context, userID string) error
	ApplyDelta(ctx context.Context, txRecord *models.CoinTransaction) (int64, error)
	GetWallet(ctx context.Context, userID string) (*models.CoinWallet, error)
	SumTransactions(ctx context.Context, userID string) (int64, error)
	CountCompletionsInPeriod(ctx context.Context, userID, period string) (int, error)
	CreateRedFlag(ctx context.Context, flag *models.RedFlag) (int, error)
	AwardBadge(ctx context.Context, badge *models.UserBadge) error
}

// PointsLedger is the legacy points economy: base 1000, flat red-list
// penalty, monthly bonus with a streak counter.
type PointsLedger struct {
	repo       pointsStore
	settings   thresholds
	publisher  Publisher
	logger     *zap.Logger
	basePoints int64
}

// NewPointsLedger constructs the points ledger.
func NewPointsLedger(repo pointsStore, settings thresholds, publisher Publisher, logger *zap.Logger, basePoints int64) *PointsLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if basePoints <= 0 {
		basePoints = 1000
	}
	return &PointsLedger{repo: repo, settings: settings, publisher: publisher, logger: logger, basePoints: basePoints}
}

// ApplyRedListPenalty deducts the configured penalty and raises a low-points
// warning when the balance crosses below the threshold with this deduction.
func (l *PointsLedger) ApplyRedListPenalty(ctx context.Context, userID, fileID string) error {
	if err := l.repo.EnsureAccount(ctx, userID, l.basePoints); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure points account")
	}
	penalty := int64(l.settings.Int(ctx, SettingRedListPenalty))
	after, err := l.repo.ApplyDelta(ctx, &models.PointsTransaction{
		UserID: userID,
		Amount: -penalty,
		Reason: models.TxReasonRedListPenalty,
		FileID: &fileID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply red-list penalty")
	}
	before := after + penalty
	warnAt := int64(l.settings.Int(ctx, SettingLowPointsThreshold))
	if before >= warnAt && after < warnAt {
		l.publisher.Publish(models.NotificationEvent{
			UserID:  userID,
			Type:    models.NotifyLowPoints,
			Title:   "Points running low",
			Message: fmt.Sprintf("Your points balance dropped to %d.", after),
			FileID:  &fileID,
		})
	}
	return nil
}

// AwardCompletion grants the completion reward for files approved with time
// still on the clock. Late approvals earn nothing.
func (l *PointsLedger) AwardCompletion(ctx context.Context, userID, fileID string, remainingSeconds int64) error {
	if remainingSeconds <= 0 {
		return nil
	}
	if err := l.repo.EnsureAccount(ctx, userID, l.basePoints); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure points account")
	}
	reward := int64(l.settings.Int(ctx, SettingCompletionReward))
	if reward <= 0 {
		return nil
	}
	if _, err := l.repo.ApplyDelta(ctx, &models.PointsTransaction{
		UserID: userID,
		Amount: reward,
		Reason: models.TxReasonCompletionReward,
		FileID: &fileID,
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award completion")
	}
	return nil
}

// ApplyMonthlyBonus grants the period bonus when the user had no red-list
// penalties that month, incrementing the streak; otherwise the streak resets.
// The period marker on the bonus transaction makes re-runs no-ops.
func (l *PointsLedger) ApplyMonthlyBonus(ctx context.Context, userID, period string) error {
	granted, err := l.repo.HasBonusForPeriod(ctx, userID, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period bonus")
	}
	if granted {
		return nil
	}
	penalties, err := l.repo.CountPenaltiesInPeriod(ctx, userID, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count period penalties")
	}
	account, err := l.repo.Get(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load points account")
	}
	if penalties > 0 {
		if account.MonthlyStreak != 0 {
			if err := l.repo.SetStreak(ctx, userID, 0); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset streak")
			}
		}
		return nil
	}
	bonus := int64(l.settings.Int(ctx, SettingMonthlyBonus))
	if _, err := l.repo.ApplyDelta(ctx, &models.PointsTransaction{
		UserID: userID,
		Amount: bonus,
		Reason: models.TxReasonMonthlyBonus,
		Period: &period,
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply monthly bonus")
	}
	if err := l.repo.SetStreak(ctx, userID, account.MonthlyStreak+1); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bump streak")
	}
	return nil
}

// Reconcile verifies the ledger invariant: base plus the signed transaction
// sum equals the stored balance.
func (l *PointsLedger) Reconcile(ctx context.Context, userID string) (bool, error) {
	account, err := l.repo.Get(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "points account not found")
	}
	sum, err := l.repo.SumTransactions(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.BasePoints+sum == account.CurrentPoints, nil
}

// CoinLedger is the richer coin economy: red flags with graded severity,
// throughput rewards and badges.
type CoinLedger struct {
	repo      coinStore
	settings  thresholds
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// CoinLedgerOption mutates construction-time wiring.
type CoinLedgerOption func(*CoinLedger)

// WithCoinClock overrides the wall clock, used by tests.
func WithCoinClock(now func() time.Time) CoinLedgerOption {
	return func(l *CoinLedger) {
		l.now = now
	}
}

// NewCoinLedger constructs the coin ledger.
func NewCoinLedger(repo coinStore, settings thresholds, publisher Publisher, logger *zap.Logger, opts ...CoinLedgerOption) *CoinLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	l := &CoinLedger{repo: repo, settings: settings, publisher: publisher, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ApplyRedListPenalty records a red flag, grading severity by the running
// count, and alerts exactly when the count reaches the warning threshold.
func (l *CoinLedger) ApplyRedListPenalty(ctx context.Context, userID, fileID string) error {
	if err := l.repo.EnsureWallet(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure coin wallet")
	}
	severeAt := l.settings.Int(ctx, SettingRedFlagSevereCount)
	warnAt := l.settings.Int(ctx, SettingRedFlagWarnCount)

	wallet, err := l.repo.GetWallet(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coin wallet")
	}
	severity := models.RedFlagWarning
	if wallet.RedFlagCount+1 >= severeAt {
		severity = models.RedFlagSevere
	}
	count, err := l.repo.CreateRedFlag(ctx, &models.RedFlag{
		UserID:   userID,
		FileID:   &fileID,
		Severity: severity,
		Reason:   "file red-listed",
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record red flag")
	}
	// count == warnAt fires once per crossing; later flags are already past it.
	if count == warnAt {
		l.publisher.Publish(models.NotificationEvent{
			UserID:  userID,
			Type:    models.NotifyRedFlagThreshold,
			Title:   "Red flag threshold reached",
			Message: fmt.Sprintf("You have accumulated %d red flags.", count),
			FileID:  &fileID,
		})
	}
	return nil
}

// AwardCompletion pays the throughput reward: the optimal rate for files
// finished within the optimum desk hours, the excess rate otherwise. The
// matching hours badge is recorded for the current month.
func (l *CoinLedger) AwardCompletion(ctx context.Context, userID, fileID string, remainingSeconds int64) error {
	if remainingSeconds <= 0 {
		return nil
	}
	if err := l.repo.EnsureWallet(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure coin wallet")
	}
	optimum := int64(l.settings.Int(ctx, SettingOptimumHours)) * 3600
	amount := int64(l.settings.Int(ctx, SettingCoinExcessReward))
	reason := models.TxReasonExcessThroughput
	badge := models.BadgeExtendedHours
	if remainingSeconds >= optimum {
		amount = int64(l.settings.Int(ctx, SettingCoinOptimalReward))
		reason = models.TxReasonOptimalHours
		badge = models.BadgeLowHours
	}
	if amount <= 0 {
		return nil
	}
	after, err := l.repo.ApplyDelta(ctx, &models.CoinTransaction{
		UserID: userID,
		Amount: amount,
		Reason: reason,
		FileID: &fileID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award coins")
	}
	// The badge is recognition on top of the reward; losing it must not fail
	// the approval that earned it.
	if err := l.repo.AwardBadge(ctx, &models.UserBadge{
		UserID: userID,
		Badge:  badge,
		Period: l.now().UTC().Format("2006-01"),
	}); err != nil {
		l.logger.Warn("badge award failed",
			zap.String("user_id", userID),
			zap.String("badge", string(badge)),
			zap.Error(err))
	}
	l.logger.Debug("coins awarded",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", after))
	return nil
}

// ApplyMonthlyBonus awards the monthly recognition badges. Coin balances
// carry no flat monthly grant; the momentum badge marks a clean month and the
// desk volume badge a month of heavy throughput.
func (l *CoinLedger) ApplyMonthlyBonus(ctx context.Context, userID, period string) error {
	wallet, err := l.repo.GetWallet(ctx, userID)
	if err != nil {
		// No wallet means no coin activity this period.
		return nil
	}
	completions, err := l.repo.CountCompletionsInPeriod(ctx, userID, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count period completions")
	}
	if volumeAt := l.settings.Int(ctx, SettingDeskVolumeCount); volumeAt > 0 && completions >= volumeAt {
		if err := l.repo.AwardBadge(ctx, &models.UserBadge{
			UserID: userID,
			Badge:  models.BadgeDeskVolume,
			Period: period,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award badge")
		}
	}
	if wallet.RedFlagCount > 0 {
		return nil
	}
	if err := l.repo.AwardBadge(ctx, &models.UserBadge{
		UserID: userID,
		Badge:  models.BadgeMomentum,
		Period: period,
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award badge")
	}
	return nil
}

// Reconcile verifies the coin ledger invariant: the signed transaction sum
// equals the wallet balance (coin wallets start at zero).
func (l *CoinLedger) Reconcile(ctx context.Context, userID string) (bool, error) {
	wallet, err := l.repo.GetWallet(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "coin wallet not found")
	}
	sum, err := l.repo.SumTransactions(ctx, userID)
	if err != nil {
		return false, err
	}
	return sum == wallet.Balance, nil
}

// IncentiveService fans ledger effects out to every configured economy and
// serves balance reads for the API.
type IncentiveService struct {
	ledgers []IncentiveLedger
	points  pointsStore
	coins   coinStore
	logger  *zap.Logger
}

// NewIncentiveService constructs the fan-out service.
func NewIncentiveService(points pointsStore, coins coinStore, logger *zap.Logger, ledgers ...IncentiveLedger) *IncentiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncentiveService{ledgers: ledgers, points: points, coins: coins, logger: logger}
}

// ApplyRedListPenalty implements IncentiveLedger across all economies.
func (s *IncentiveService) ApplyRedListPenalty(ctx context.Context, userID, fileID string) error {
	return s.each(func(l IncentiveLedger) error { return l.ApplyRedListPenalty(ctx, userID, fileID) })
}

// AwardCompletion implements IncentiveLedger across all economies.
func (s *IncentiveService) AwardCompletion(ctx context.Context, userID, fileID string, remainingSeconds int64) error {
	return s.each(func(l IncentiveLedger) error { return l.AwardCompletion(ctx, userID, fileID, remainingSeconds) })
}

// ApplyMonthlyBonus implements IncentiveLedger across all economies.
func (s *IncentiveService) ApplyMonthlyBonus(ctx context.Context, userID, period string) error {
	return s.each(func(l IncentiveLedger) error { return l.ApplyMonthlyBonus(ctx, userID, period) })
}

// RunMonthlyBonus applies the period bonus to every known account.
func (s *IncentiveService) RunMonthlyBonus(ctx context.Context, period string) error {
	ids, err := s.points.ListAccountIDs(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
	}
	for _, id := range ids {
		if err := s.ApplyMonthlyBonus(ctx, id, period); err != nil {
			s.logger.Warn("monthly bonus failed for user", zap.String("user_id", id), zap.Error(err))
		}
	}
	return nil
}

// Balance returns the user's standing in both economies; a missing side is
// reported as absent rather than an error.
func (s *IncentiveService) Balance(ctx context.Context, userID string) (*models.UserPoints, *models.CoinWallet, error) {
	var points *models.UserPoints
	var wallet *models.CoinWallet
	if p, err := s.points.Get(ctx, userID); err == nil {
		points = p
	}
	if w, err := s.coins.GetWallet(ctx, userID); err == nil {
		wallet = w
	}
	if points == nil && wallet == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no incentive account for user")
	}
	return points, wallet, nil
}

func (s *IncentiveService) each(fn func(IncentiveLedger) error) error {
	var firstErr error
	for _, ledger := range s.ledgers {
		if err := fn(ledger); err != nil {
			s.logger.Warn("ledger effect failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
