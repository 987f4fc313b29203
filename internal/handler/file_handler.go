package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
	"github.com/filetrackhq/filetrack-api/pkg/response"
)

type fileService interface {
	Create(ctx context.Context, req *dto.CreateFileRequest, actor *models.JWTClaims) (*models.File, error)
	Forward(ctx context.Context, fileID string, req *dto.ForwardFileRequest, actor *models.JWTClaims) (*models.File, error)
	PerformAction(ctx context.Context, fileID string, req *dto.FileActionRequest, actor *models.JWTClaims) (*models.File, error)
	Recall(ctx context.Context, fileID, remarks string, actor *models.JWTClaims) (*models.File, error)
	Dispatch(ctx context.Context, fileID string, req *dto.DispatchFileRequest, actor *models.JWTClaims) (*models.File, error)
	Get(ctx context.Context, fileID string) (*models.File, error)
	List(ctx context.Context, query *dto.FileQuery) ([]models.File, int, error)
	History(ctx context.Context, fileID string) ([]models.RoutingEntry, error)
}

type fileMetrics interface {
	IncFilesCreated()
}

// FileHandler exposes the case-file lifecycle endpoints.
type FileHandler struct {
	service fileService
	metrics fileMetrics
}

// NewFileHandler builds a new handler.
func NewFileHandler(service fileService, metrics fileMetrics) *FileHandler {
	return &FileHandler{service: service, metrics: metrics}
}

// Create godoc
// @Summary Register a new case file
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body dto.CreateFileRequest true "File payload"
// @Success 201 {object} response.Envelope
// @Router /files [post]
func (h *FileHandler) Create(c *gin.Context) {
	var req dto.CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file payload"))
		return
	}
	file, err := h.service.Create(c.Request.Context(), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncFilesCreated()
	}
	response.Created(c, file)
}

// List godoc
// @Summary List case files
// @Tags Files
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param redListed query boolean false "Only red-listed files"
// @Param page query integer false "Page number"
// @Param pageSize query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /files [get]
func (h *FileHandler) List(c *gin.Context) {
	query := &dto.FileQuery{
		DivisionID:   c.Query("divisionId"),
		DepartmentID: c.Query("departmentId"),
		AssignedToID: c.Query("assignedTo"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			query.Statuses = append(query.Statuses, models.FileStatus(strings.ToUpper(strings.TrimSpace(status))))
		}
	}
	if raw := c.Query("redListed"); raw != "" {
		red, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "redListed must be a boolean"))
			return
		}
		query.RedListed = &red
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	files, total, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := models.NewPagination(query.Page, query.PageSize, total)
	response.JSON(c, http.StatusOK, files, &pagination)
}

// Get godoc
// @Summary Get a case file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	file, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// History godoc
// @Summary Get a file's routing trail
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/history [get]
func (h *FileHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Forward godoc
// @Summary Forward a file to another holder
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.ForwardFileRequest true "Forward payload"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/forward [post]
func (h *FileHandler) Forward(c *gin.Context) {
	var req dto.ForwardFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid forward payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid forward payload"))
		return
	}
	file, err := h.service.Forward(c.Request.Context(), c.Param("id"), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// Action godoc
// @Summary Apply a named transition to a file
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.FileActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/action [post]
func (h *FileHandler) Action(c *gin.Context) {
	var req dto.FileActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	file, err := h.service.PerformAction(c.Request.Context(), c.Param("id"), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// Recall godoc
// @Summary Recall a file out of circulation
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/recall [post]
func (h *FileHandler) Recall(c *gin.Context) {
	var req dto.FileActionRequest
	_ = c.ShouldBindJSON(&req)
	file, err := h.service.Recall(c.Request.Context(), c.Param("id"), req.Remarks, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}

// Dispatch godoc
// @Summary Dispatch an approved file
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.DispatchFileRequest true "Dispatch payload"
// @Success 200 {object} response.Envelope
// @Router /files/{id}/dispatch [post]
func (h *FileHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dispatch payload"))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dispatch payload"))
		return
	}
	file, err := h.service.Dispatch(c.Request.Context(), c.Param("id"), &req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file, nil)
}
