package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/pointsledger/internal/app/api/middleware"
	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/response"
	"github.com/fatflowers/pointsledger/pkg/types"
)

// PointsService is the slice of the points manager the HTTP layer uses.
type PointsService interface {
	GetBalance(ctx context.Context, userID string) (*models.PointsBalance, error)
	GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.PointsHistory, error)
	ActiveRollovers(ctx context.Context, userID string, now time.Time) ([]*models.RolloverRecord, error)
	ConsumeForDownload(ctx context.Context, userID, orderID string, cost int64) (*points.Change, error)
	AddPoints(ctx context.Context, userID string, amount int64, typ types.PointsHistoryType, description string) (*models.PointsBalance, error)
	RefundOrder(ctx context.Context, userID, orderID string, amount int64, description string) (*points.Change, error)
	ScanHistory(ctx context.Context, req *points.ScanHistoryRequest) (*points.ScanHistoryResponse, error)
	Reconcile(ctx context.Context, userID string) (*points.Reconciliation, error)
}

type PointsOverview struct {
	Balance         *models.PointsBalance    `json:"balance"`
	History         []*models.PointsHistory  `json:"history"`
	ActiveRollovers []*models.RolloverRecord `json:"active_rollovers"`
}

type DownloadRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Cost    int64  `json:"cost" binding:"required,gt=0"`
}

type DownloadResponse struct {
	Success bool                  `json:"success"`
	Balance *models.PointsBalance `json:"balance"`
	History *models.PointsHistory `json:"history"`
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// @Summary      Get points
// @Description  Returns the caller's balance, a page of history (most recent first) and unexpired rollover records.
// @Tags         Points
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Page size (default 20, max 100)"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  handlers.RespPointsOverview
// @Router       /api/v1/points [get]
func ApiGetPoints(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := mw.UserID(c)
		limit, ok := queryInt(c, "limit", 0)
		if !ok {
			badRequest(c, "invalid limit")
			return
		}
		offset, ok := queryInt(c, "offset", 0)
		if !ok {
			badRequest(c, "invalid offset")
			return
		}
		ctx := c.Request.Context()

		bal, err := svc.GetBalance(ctx, userID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		history, err := svc.GetHistory(ctx, userID, limit, offset)
		if err != nil {
			respondError(c, log, err)
			return
		}
		rollovers, err := svc.ActiveRollovers(ctx, userID, time.Now().UTC())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&PointsOverview{Balance: bal, History: history, ActiveRollovers: rollovers}))
	}
}

// @Summary      Consume points for a download
// @Description  Charges cost points for a download order. Each order is charged once; a repeated order id returns a conflict.
// @Tags         Points
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DownloadRequest true "Download order"
// @Success      200  {object}  handlers.RespDownload
// @Router       /api/v1/points/download [post]
func ApiConsumeForDownload(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		change, err := svc.ConsumeForDownload(c.Request.Context(), mw.UserID(c), req.OrderID, req.Cost)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&DownloadResponse{Success: true, Balance: change.Balance, History: change.History}))
	}
}

func RegisterPointsRoutes(r gin.IRouter, svc PointsService, log *zap.SugaredLogger) {
	r.GET("/points", ApiGetPoints(svc, log))
	r.POST("/points/download", ApiConsumeForDownload(svc, log))
}
