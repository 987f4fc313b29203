package dto

// RequestExtensionRequest asks for additional days on a held file.
type RequestExtensionRequest struct {
	AdditionalDays int    `json:"additionalDays" validate:"required,gt=0,lte=90"`
	Reason         string `json:"reason" validate:"required"`
}

// ResolveExtensionRequest captures the approver's decision.
type ResolveExtensionRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks"`
}
