package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
	"github.com/filetrackhq/filetrack-api/pkg/response"
)

type extensionService interface {
	RequestExtraTime(ctx context.Context, fileID string, req *dto.RequestExtensionRequest, actor *models.JWTClaims) (*models.ExtensionRequest, error)
	ResolveExtension(ctx context.Context, requestID string, req *dto.ResolveExtensionRequest, actor *models.JWTClaims) (*models.ExtensionRequest, error)
	PendingForApprover(ctx context.Context, approverID string) ([]models.ExtensionRequest, error)
	ListByFile(ctx context.Context, fileID string) ([]models.ExtensionRequest, error)
}

type extensionMetrics interface {
	IncExtensionResolved(status string)
}

// ExtensionHandler exposes the time-extension workflow endpoints.
type ExtensionHandler struct {
	service extensionService
	metrics extensionMetrics
}

// NewExtensionHandler builds a new handler.
func NewExtensionHandler(service extensionService, metrics extensionMetrics) *ExtensionHandler {
	return &ExtensionHandler{service: service, metrics: metrics}
}

// Request godoc
// @Summary Request extra time on a file
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.RequestExtensionRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Router /files/{id}/extensions [post]
func (h *ExtensionHandler) Request(c *gin.Context) {
	var req dto.RequestExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extension payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extension payload"))
		return
	}
	request, err := h.service.RequestExtraTime(c.Request.Context(), c.Param("id"), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Resolve godoc
// @Summary Approve or deny an extension request
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Extension request ID"
// @Param payload body dto.ResolveExtensionRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /extensions/{id}/resolve [post]
func (h *ExtensionHandler) Resolve(c *gin.Context) {
	var req dto.ResolveExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolution payload"))
		return
	}
	request, err := h.service.ResolveExtension(c.Request.Context(), c.Param("id"), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncExtensionResolved(string(request.Status))
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Pending godoc
// @Summary List extension requests awaiting my approval
// @Tags Extensions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /extensions/pending [get]
func (h *ExtensionHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, err := h.service.PendingForApprover(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListByFile godoc
// @Summary List extension requests for a file
// @Tags Extensions
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/extensions [get]
func (h *ExtensionHandler) ListByFile(c *gin.Context) {
	requests, err := h.service.ListByFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
