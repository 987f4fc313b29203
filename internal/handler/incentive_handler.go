package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
	"github.com/filetrackhq/filetrack-api/pkg/export"
	"github.com/filetrackhq/filetrack-api/pkg/response"
)

type incentiveService interface {
	Balance(ctx context.Context, userID string) (*models.UserPoints, *models.CoinWallet, error)
}

type pointsReader interface {
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointsTransaction, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error)
}

type coinReader interface {
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error)
}

type redListLister interface {
	List(ctx context.Context, filter models.FileFilter) ([]models.File, int, error)
}

// IncentiveHandler exposes balances, ledgers, the leaderboard and the
// red-list report.
type IncentiveHandler struct {
	service incentiveService
	points  pointsReader
	coins   coinReader
	files   redListLister
}

// NewIncentiveHandler builds a new handler.
func NewIncentiveHandler(service incentiveService, points pointsReader, coins coinReader, files redListLister) *IncentiveHandler {
	return &IncentiveHandler{service: service, points: points, coins: coins, files: files}
}

// MyBalance godoc
// @Summary Get my incentive balances
// @Tags Incentives
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /incentives/me [get]
func (h *IncentiveHandler) MyBalance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.balance(c, claims.UserID)
}

// UserBalance godoc
// @Summary Get a user's incentive balances
// @Tags Incentives
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /incentives/users/{id} [get]
func (h *IncentiveHandler) UserBalance(c *gin.Context) {
	h.balance(c, c.Param("id"))
}

func (h *IncentiveHandler) balance(c *gin.Context, userID string) {
	points, coins, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BalanceResponse{Points: points, Coins: coins}, nil)
}

// MyTransactions godoc
// @Summary List my ledger transactions
// @Tags Incentives
// @Produce json
// @Param ledger query string false "points or coins"
// @Param limit query integer false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /incentives/me/transactions [get]
func (h *IncentiveHandler) MyTransactions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	switch c.DefaultQuery("ledger", "points") {
	case "coins":
		transactions, err := h.coins.ListTransactions(c.Request.Context(), claims.UserID, limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, transactions, nil)
	case "points":
		transactions, err := h.points.ListTransactions(c.Request.Context(), claims.UserID, limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, transactions, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ledger must be points or coins"))
	}
}

// Leaderboard godoc
// @Summary Points leaderboard
// @Tags Incentives
// @Produce json
// @Param limit query integer false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /incentives/leaderboard [get]
func (h *IncentiveHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.points.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RedListReport godoc
// @Summary Export the current red list
// @Tags Incentives
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200 {file} byte
// @Router /reports/redlist [get]
func (h *IncentiveHandler) RedListReport(c *gin.Context) {
	red := true
	files, _, err := h.files.List(c.Request.Context(), models.FileFilter{RedListed: &red, PageSize: 1000})
	if err != nil {
		response.Error(c, err)
		return
	}
	report := &export.RedListReport{GeneratedAt: time.Now(), Files: files}

	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		payload, err := report.PDF()
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="redlist.pdf"`)
		c.Data(http.StatusOK, "application/pdf", payload)
	case "csv":
		payload, err := report.CSV()
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="redlist.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
