package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/statistics"
	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/response"
	"github.com/fatflowers/pointsledger/pkg/types"
)

// StatisticsService computes admin dashboards.
type StatisticsService interface {
	GetPointsStatistic(ctx context.Context, req *statistics.PointsStatisticRequest) (*statistics.PointsStatisticResponse, error)
}

type AdjustPointsRequest struct {
	UserID string `json:"user_id" binding:"required"`

	// Amount is signed; zero is rejected.
	Amount      int64                   `json:"amount"`
	Type        types.PointsHistoryType `json:"type"`
	Description string                  `json:"description"`
}

type AdjustPointsResponse struct {
	Success bool                  `json:"success"`
	Balance *models.PointsBalance `json:"balance"`
}

type RefundPointsRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	OrderID     string `json:"order_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

type RefundPointsResponse struct {
	Success bool                  `json:"success"`
	Balance *models.PointsBalance `json:"balance"`
	History *models.PointsHistory `json:"history"`
}

// @Summary      Adjust points (Admin)
// @Description  Credits (positive amount) or debits (negative amount) a user's balance. Type defaults to ADMIN_ADJUSTMENT.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AdjustPointsRequest true "Adjustment"
// @Success      200  {object}  handlers.RespAdjustPoints
// @Router       /api/v1/admin/points/adjust [post]
func ApiAdjustPoints(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdjustPointsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Type == "" {
			req.Type = types.PointsHistoryTypeAdminAdjustment
		}
		if req.Description == "" {
			req.Description = "Admin adjustment"
		}
		bal, err := svc.AddPoints(c.Request.Context(), req.UserID, req.Amount, req.Type, req.Description)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&AdjustPointsResponse{Success: true, Balance: bal}))
	}
}

// @Summary      Refund an order (Admin)
// @Description  Returns points for an order. Each order can be refunded once.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RefundPointsRequest true "Refund"
// @Success      200  {object}  handlers.RespRefundPoints
// @Router       /api/v1/admin/points/refund [post]
func ApiRefundPoints(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefundPointsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		change, err := svc.RefundOrder(c.Request.Context(), req.UserID, req.OrderID, req.Amount, req.Description)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&RefundPointsResponse{Success: true, Balance: change.Balance, History: change.History}))
	}
}

// @Summary      List points history (Admin)
// @Description  Retrieves a paginated and filterable list of ledger entries across users.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body points.ScanHistoryRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanHistory
// @Router       /api/v1/admin/points/history [post]
func ApiScanHistory(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req points.ScanHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.ScanHistory(c.Request.Context(), &req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Reconcile a balance (Admin)
// @Description  Compares current_points with the sum of the user's history amounts.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query  string  true  "User ID"
// @Success      200  {object}  handlers.RespReconcile
// @Router       /api/v1/admin/points/reconcile [get]
func ApiReconcile(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			badRequest(c, "missing user_id")
			return
		}
		res, err := svc.Reconcile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get points statistics (Admin)
// @Description  Computes the requested statistic items, optionally filtered.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.PointsStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespPointsStatistic
// @Router       /api/v1/admin/points/statistic [post]
func ApiGetPointsStatistic(svc StatisticsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.PointsStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.GetPointsStatistic(c.Request.Context(), &req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminPointsRoutes(r gin.IRouter, svc PointsService, stats StatisticsService, log *zap.SugaredLogger) {
	r.POST("/points/adjust", ApiAdjustPoints(svc, log))
	r.POST("/points/refund", ApiRefundPoints(svc, log))
	r.POST("/points/history", ApiScanHistory(svc, log))
	r.GET("/points/reconcile", ApiReconcile(svc, log))
	r.POST("/points/statistic", ApiGetPointsStatistic(stats, log))
}
