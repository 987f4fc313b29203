package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
	"github.com/filetrackhq/filetrack-api/pkg/response"
)

type holidayStore interface {
	Create(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Holiday, error)
}

type deskAdmin interface {
	Create(ctx context.Context, desk *models.Desk) error
	ListByDivision(ctx context.Context, divisionID string, day time.Time) ([]models.DeskLoad, error)
}

type settingsAdmin interface {
	List(ctx context.Context) ([]models.Setting, error)
	Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*models.Setting, error)
}

type manualSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// AdminHandler exposes calendar, desk, settings and sweep administration.
type AdminHandler struct {
	holidays holidayStore
	desks    deskAdmin
	settings settingsAdmin
	sweeper  manualSweeper
}

// NewAdminHandler builds a new handler.
func NewAdminHandler(holidays holidayStore, desks deskAdmin, settings settingsAdmin, sweeper manualSweeper) *AdminHandler {
	return &AdminHandler{holidays: holidays, desks: desks, settings: settings, sweeper: sweeper}
}

// ListHolidays godoc
// @Summary List configured holidays
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/holidays [get]
func (h *AdminHandler) ListHolidays(c *gin.Context) {
	holidays, err := h.holidays.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// CreateHoliday godoc
// @Summary Register a holiday
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateHolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /admin/holidays [post]
func (h *AdminHandler) CreateHoliday(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	holiday := &models.Holiday{Date: date, Name: req.Name, Recurring: req.Recurring}
	if claims := claimsFromContext(c); claims != nil {
		holiday.CreatedBy = claims.UserID
	}
	if err := h.holidays.Create(c.Request.Context(), holiday); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// DeleteHoliday godoc
// @Summary Remove a holiday
// @Tags Admin
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /admin/holidays/{id} [delete]
func (h *AdminHandler) DeleteHoliday(c *gin.Context) {
	if err := h.holidays.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListDesks godoc
// @Summary List desks in a division with today's load
// @Tags Admin
// @Produce json
// @Param divisionId query string true "Division ID"
// @Success 200 {object} response.Envelope
// @Router /admin/desks [get]
func (h *AdminHandler) ListDesks(c *gin.Context) {
	divisionID := c.Query("divisionId")
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "divisionId is required"))
		return
	}
	desks, err := h.desks.ListByDivision(c.Request.Context(), divisionID, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, desks, nil)
}

// CreateDesk godoc
// @Summary Register a desk
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateDeskRequest true "Desk payload"
// @Success 201 {object} response.Envelope
// @Router /admin/desks [post]
func (h *AdminHandler) CreateDesk(c *gin.Context) {
	var req dto.CreateDeskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid desk payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid desk payload"))
		return
	}
	desk := &models.Desk{
		Name:           req.Name,
		DivisionID:     req.DivisionID,
		MaxFilesPerDay: req.MaxFilesPerDay,
		Active:         true,
	}
	if err := h.desks.Create(c.Request.Context(), desk); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, desk)
}

// ListSettings godoc
// @Summary List runtime settings
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSetting godoc
// @Summary Update a runtime setting
// @Tags Admin
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateSettingRequest true "Setting payload"
// @Success 200 {object} response.Envelope
// @Router /admin/settings/{key} [put]
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	if req.Key == "" {
		req.Key = c.Param("key")
	}
	if req.Key != c.Param("key") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key mismatch between path and body"))
		return
	}
	setting, err := h.settings.Update(c.Request.Context(), req.Key, req.Value, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// TriggerSweep godoc
// @Summary Run a red-list sweep immediately
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/sweep [post]
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	swept, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"red_listed": swept}, nil)
}
