package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/internal/app/service/rollover"
	"github.com/fatflowers/pointsledger/pkg/response"
)

// RolloverRunner is the scheduler surface the cron endpoints trigger.
type RolloverRunner interface {
	Sweep(ctx context.Context, now time.Time) (*rollover.SweepResult, error)
	ExpireRollovers(ctx context.Context, now time.Time) (int64, error)
}

type CronRolloverResponse struct {
	Success bool `json:"success"`
	*rollover.SweepResult
}

type CronExpireResponse struct {
	Success      bool  `json:"success"`
	ExpiredCount int64 `json:"expired_count"`
}

// @Summary      Run the rollover sweep (Cron)
// @Description  Rolls over every ACTIVE subscription whose period has ended. Requires the cron bearer secret.
// @Tags         Cron
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  handlers.RespCronRollover
// @Router       /api/cron/rollover [post]
func ApiCronRollover(runner RolloverRunner, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := runner.Sweep(c.Request.Context(), time.Now().UTC())
		if errors.Is(err, rollover.ErrSweepInProgress) {
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeConflict, &ErrorBody{Error: err.Error()}))
			return
		}
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&CronRolloverResponse{Success: true, SweepResult: res}))
	}
}

// @Summary      Expire rollover records (Cron)
// @Description  Stamps expired_at on rollover records past their grace window. Requires the cron bearer secret.
// @Tags         Cron
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  handlers.RespCronExpire
// @Router       /api/cron/rollover/expire [post]
func ApiCronExpireRollovers(runner RolloverRunner, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := runner.ExpireRollovers(c.Request.Context(), time.Now().UTC())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&CronExpireResponse{Success: true, ExpiredCount: n}))
	}
}

func RegisterCronRoutes(r gin.IRouter, runner RolloverRunner, log *zap.SugaredLogger) {
	r.POST("/rollover", ApiCronRollover(runner, log))
	r.POST("/rollover/expire", ApiCronExpireRollovers(runner, log))
}
