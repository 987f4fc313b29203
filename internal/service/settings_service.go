package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

type settingStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

// Setting keys recognised by the engine.
const (
	SettingRedListPenalty     = "redlist_penalty"
	SettingMonthlyBonus       = "monthly_bonus"
	SettingCompletionReward   = "completion_reward"
	SettingLowPointsThreshold = "low_points_threshold"
	SettingRedFlagWarnCount   = "red_flag_warn_count"
	SettingRedFlagSevereCount = "red_flag_severe_count"
	SettingOptimumHours       = "optimum_hours"
	SettingCoinOptimalReward  = "coin_optimal_reward"
	SettingCoinExcessReward   = "coin_excess_reward"
	SettingLowCoinsThreshold  = "low_coins_threshold"
	SettingDeskVolumeCount    = "desk_volume_badge_count"
)

type allowedSetting struct {
	Key         string
	Type        models.SettingType
	Description string
}

var allowedSettingKeys = []string{
	SettingRedListPenalty,
	SettingMonthlyBonus,
	SettingCompletionReward,
	SettingLowPointsThreshold,
	SettingRedFlagWarnCount,
	SettingRedFlagSevereCount,
	SettingOptimumHours,
	SettingCoinOptimalReward,
	SettingCoinExcessReward,
	SettingLowCoinsThreshold,
	SettingDeskVolumeCount,
}

var allowedSettings = map[string]allowedSetting{
	SettingRedListPenalty:     {Key: SettingRedListPenalty, Type: models.SettingTypeInteger, Description: "Points deducted when a holder's file is red-listed"},
	SettingMonthlyBonus:       {Key: SettingMonthlyBonus, Type: models.SettingTypeInteger, Description: "Points awarded for a month without red-lists"},
	SettingCompletionReward:   {Key: SettingCompletionReward, Type: models.SettingTypeInteger, Description: "Points awarded for approving a file within budget"},
	SettingLowPointsThreshold: {Key: SettingLowPointsThreshold, Type: models.SettingTypeInteger, Description: "Balance below which a low-points warning fires"},
	SettingRedFlagWarnCount:   {Key: SettingRedFlagWarnCount, Type: models.SettingTypeInteger, Description: "Red-flag count that triggers the threshold alert"},
	SettingRedFlagSevereCount: {Key: SettingRedFlagSevereCount, Type: models.SettingTypeInteger, Description: "Red-flag count graded as severe"},
	SettingOptimumHours:       {Key: SettingOptimumHours, Type: models.SettingTypeInteger, Description: "Desk hours per file considered optimal"},
	SettingCoinOptimalReward:  {Key: SettingCoinOptimalReward, Type: models.SettingTypeInteger, Description: "Coins awarded for optimal throughput"},
	SettingCoinExcessReward:   {Key: SettingCoinExcessReward, Type: models.SettingTypeInteger, Description: "Coins awarded for above-threshold throughput"},
	SettingLowCoinsThreshold:  {Key: SettingLowCoinsThreshold, Type: models.SettingTypeInteger, Description: "Coin balance below which a low-coins warning fires"},
	SettingDeskVolumeCount:    {Key: SettingDeskVolumeCount, Type: models.SettingTypeInteger, Description: "Completions in a month that earn the desk volume badge"},
}

// SettingsServiceConfig seeds fallback values used when a key is unset.
type SettingsServiceConfig struct {
	Defaults map[string]int
}

// SettingsService resolves runtime thresholds with typed defaults, following
// the allowed-key registry pattern.
type SettingsService struct {
	repo     settingStore
	logger   *zap.Logger
	defaults map[string]int
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingStore, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := map[string]int{
		SettingRedListPenalty:     50,
		SettingMonthlyBonus:       100,
		SettingCompletionReward:   20,
		SettingLowPointsThreshold: 500,
		SettingRedFlagWarnCount:   3,
		SettingRedFlagSevereCount: 5,
		SettingOptimumHours:       4,
		SettingCoinOptimalReward:  10,
		SettingCoinExcessReward:   15,
		SettingLowCoinsThreshold:  0,
		SettingDeskVolumeCount:    20,
	}
	for key, value := range cfg.Defaults {
		if _, ok := defaults[key]; ok {
			defaults[key] = value
		}
	}
	return &SettingsService{repo: repo, logger: logger, defaults: defaults}
}

// Int resolves an integer setting, falling back to the default when unset or
// unreadable. Threshold reads must never fail a sweep.
func (s *SettingsService) Int(ctx context.Context, key string) int {
	fallback := s.defaults[key]
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("setting read failed, using default", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(setting.Value))
	if err != nil {
		s.logger.Warn("setting value not an integer, using default", zap.String("key", key))
		return fallback
	}
	return value
}

// List returns every allowed setting merged with stored overrides.
func (s *SettingsService) List(ctx context.Context) ([]models.Setting, error) {
	stored, err := s.repo.ListByKeys(ctx, append([]string(nil), allowedSettingKeys...))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	existing := make(map[string]models.Setting, len(stored))
	for _, item := range stored {
		existing[item.Key] = item
	}
	result := make([]models.Setting, 0, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		meta := allowedSettings[key]
		if item, ok := existing[key]; ok {
			result = append(result, item)
			continue
		}
		desc := meta.Description
		result = append(result, models.Setting{
			Key:         key,
			Value:       strconv.Itoa(s.defaults[key]),
			Type:        meta.Type,
			Description: &desc,
		})
	}
	return result, nil
}

// Update upserts an allowed setting after type validation.
func (s *SettingsService) Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*models.Setting, error) {
	meta, ok := allowedSettings[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	value = strings.TrimSpace(value)
	if meta.Type == models.SettingTypeInteger {
		if _, err := strconv.Atoi(value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects an integer value", key))
		}
	}
	desc := meta.Description
	setting := &models.Setting{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: &desc,
	}
	if actor != nil && actor.UserID != "" {
		setting.UpdatedBy = &actor.UserID
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}
	return setting, nil
}
