package dto

import "github.com/filetrackhq/filetrack-api/internal/models"

// BalanceResponse reports a user's standing in both economies.
type BalanceResponse struct {
	Points *models.UserPoints `json:"points,omitempty"`
	Coins  *models.CoinWallet `json:"coins,omitempty"`
}

// CreateHolidayRequest registers a non-working date.
type CreateHolidayRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
	Recurring bool   `json:"recurring"`
}

// CreateDeskRequest registers a desk within a division.
type CreateDeskRequest struct {
	Name           string `json:"name" validate:"required"`
	DivisionID     string `json:"divisionId" validate:"required"`
	MaxFilesPerDay int    `json:"maxFilesPerDay" validate:"gt=0"`
}

// UpdateSettingRequest changes a runtime threshold.
type UpdateSettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}
