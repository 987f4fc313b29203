package models

import "time"

// Transaction reasons shared by both ledgers.
const (
	TxReasonRedListPenalty   = "REDLIST_PENALTY"
	TxReasonMonthlyBonus     = "MONTHLY_BONUS"
	TxReasonCompletionReward = "COMPLETION_REWARD"
	TxReasonOptimalHours     = "OPTIMAL_HOURS"
	TxReasonExcessThroughput = "EXCESS_THROUGHPUT"
	TxReasonAdjustment       = "ADJUSTMENT"
)

// UserPoints is the legacy per-user points balance. CurrentPoints always
// equals BasePoints plus the signed sum of the user's points transactions.
type UserPoints struct {
	UserID          string    `db:"user_id" json:"user_id"`
	BasePoints      int64     `db:"base_points" json:"base_points"`
	CurrentPoints   int64     `db:"current_points" json:"current_points"`
	TotalDeductions int64     `db:"total_deductions" json:"total_deductions"`
	TotalBonuses    int64     `db:"total_bonuses" json:"total_bonuses"`
	MonthlyStreak   int       `db:"monthly_streak" json:"monthly_streak"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PointsTransaction is an immutable signed entry in the points ledger.
type PointsTransaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Amount    int64     `db:"amount" json:"amount"`
	Reason    string    `db:"reason" json:"reason"`
	FileID    *string   `db:"file_id" json:"file_id,omitempty"`
	Period    *string   `db:"period" json:"period,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoinWallet is the richer coin-economy balance.
type CoinWallet struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Balance      int64     `db:"balance" json:"balance"`
	TotalEarned  int64     `db:"total_earned" json:"total_earned"`
	TotalSpent   int64     `db:"total_spent" json:"total_spent"`
	RedFlagCount int       `db:"red_flag_count" json:"red_flag_count"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CoinTransaction is an immutable signed entry in the coin ledger.
type CoinTransaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Amount    int64     `db:"amount" json:"amount"`
	Reason    string    `db:"reason" json:"reason"`
	FileID    *string   `db:"file_id" json:"file_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RedFlagSeverity grades a red flag.
type RedFlagSeverity string

const (
	RedFlagWarning RedFlagSeverity = "WARNING"
	RedFlagSevere  RedFlagSeverity = "SEVERE"
)

// RedFlag records a red-listing strike against a user in the coin economy.
type RedFlag struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	FileID    *string         `db:"file_id" json:"file_id,omitempty"`
	Severity  RedFlagSeverity `db:"severity" json:"severity"`
	Reason    string          `db:"reason" json:"reason"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Badge labels earned through the coin economy.
type Badge string

const (
	BadgeLowHours      Badge = "LOW_HOURS"
	BadgeExtendedHours Badge = "EXTENDED_HOURS"
	BadgeDeskVolume    Badge = "DESK_VOLUME"
	BadgeMomentum      Badge = "MOMENTUM"
)

// UserBadge records a badge award.
type UserBadge struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Badge     Badge     `db:"badge" json:"badge"`
	Period    string    `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LeaderboardRow is a scored row in the points leaderboard.
type LeaderboardRow struct {
	UserID        string `db:"user_id" json:"user_id"`
	FullName      string `db:"full_name" json:"full_name"`
	CurrentPoints int64  `db:"current_points" json:"current_points"`
	MonthlyStreak int    `db:"monthly_streak" json:"monthly_streak"`
}
