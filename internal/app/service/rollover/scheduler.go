package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/subscription"
	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/lock"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/metrics"
)

const (
	sweepLockKey        = "rollover:sweep"
	defaultSweepLockTTL = 10 * time.Minute
)

// ErrSweepInProgress is returned when another sweep holds the lock.
var ErrSweepInProgress = errors.New("rollover sweep already in progress")

type SweepFailure struct {
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	Error          string `json:"error"`
}

type SweepResult struct {
	ProcessedCount      int            `json:"processed_count"`
	SkippedCount        int            `json:"skipped_count"`
	FailedCount         int            `json:"failed_count"`
	TotalRolloverPoints int64          `json:"total_rollover_points"`
	Failures            []SweepFailure `json:"failures,omitempty"`
}

// Scheduler closes ended billing periods: it carries capped points into
// rollover records, grants the next allocation and advances the period.
type Scheduler struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.SugaredLogger
	points *points.Manager
	subs   *subscription.Service
	locker lock.Locker
}

func NewScheduler(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, pm *points.Manager, subs *subscription.Service, locker lock.Locker) *Scheduler {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Scheduler{cfg: cfg, db: db, log: log, points: pm, subs: subs, locker: locker}
}

func (s *Scheduler) lockTTL() time.Duration {
	if s.cfg != nil && s.cfg.Rollover.LockTTL > 0 {
		return s.cfg.Rollover.LockTTL
	}
	return defaultSweepLockTTL
}

// Sweep rolls over every ACTIVE subscription whose period ended at or before
// now. A failing subscription is logged and counted; the sweep continues and
// the subscription is picked up again by the next run.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	lg := logctx.FromCtx(ctx, s.log)
	release, err := s.locker.Acquire(ctx, sweepLockKey, s.lockTTL())
	if errors.Is(err, lock.ErrNotAcquired) {
		metrics.Inc(metrics.MetricsRolloverSweeps, "locked")
		return nil, ErrSweepInProgress
	}
	if err != nil {
		metrics.Inc(metrics.MetricsRolloverSweeps, "failed")
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			lg.Warnw("failed to release sweep lock", "err", err)
		}
	}()

	start := time.Now()
	defer metrics.ObserveBusinessProcess("rollover", "sweep", start)

	due, err := s.subs.ListDue(ctx, now)
	if err != nil {
		metrics.Inc(metrics.MetricsRolloverSweeps, "failed")
		return nil, err
	}
	lg.Infow("rollover sweep started", "due", len(due), "now", now)

	result := &SweepResult{}
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			metrics.Inc(metrics.MetricsRolloverSweeps, "canceled")
			return result, err
		}
		out, skipped, err := s.rollOne(ctx, sub.ID, now)
		switch {
		case err != nil:
			result.FailedCount++
			result.Failures = append(result.Failures, SweepFailure{SubscriptionID: sub.ID, UserID: sub.UserID, Error: err.Error()})
			metrics.Inc(metrics.MetricsRolloverSubscriptions, "failed")
			lg.Errorw("rollover failed", "subscription_id", sub.ID, "user_id", sub.UserID, "err", err)
		case skipped:
			result.SkippedCount++
			metrics.Inc(metrics.MetricsRolloverSubscriptions, "skipped")
		default:
			result.ProcessedCount++
			result.TotalRolloverPoints += out.RolledOver
			metrics.Inc(metrics.MetricsRolloverSubscriptions, "processed")
			metrics.Add(metrics.MetricsRolloverPoints, float64(out.RolledOver))
			lg.Infow("rollover applied",
				"subscription_id", sub.ID,
				"user_id", sub.UserID,
				"rolled_over", out.RolledOver,
				"allocated", out.Allocated,
			)
		}
	}

	metrics.Inc(metrics.MetricsRolloverSweeps, "completed")
	lg.Infow("rollover sweep finished",
		"processed", result.ProcessedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
		"total_rollover_points", result.TotalRolloverPoints,
	)
	return result, nil
}

// rollOne handles one subscription in its own transaction. The row is
// re-read under lock so a concurrent renewal that moved the period end is
// seen and the subscription is skipped.
func (s *Scheduler) rollOne(ctx context.Context, subscriptionID string, now time.Time) (*points.RolloverOutcome, bool, error) {
	var (
		out     *points.RolloverOutcome
		skipped bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.LockByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if !sub.Due(now) {
			skipped = true
			return nil
		}
		plan := s.cfg.GetPlanByID(sub.PlanID)
		if plan == nil {
			return fmt.Errorf("plan %s: %w", sub.PlanID, apperr.ErrNotFound)
		}
		out, err = s.points.WithTx(tx).ApplyRollover(ctx, &points.RolloverInput{
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			Plan:           plan,
			PeriodEnd:      sub.CurrentPeriodEnd,
			Now:            now,
		})
		if err != nil {
			return err
		}
		_, err = s.subs.AdvancePeriod(ctx, tx, sub, now)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if out != nil {
		s.points.Announce(ctx, out.Changes...)
	}
	return out, skipped, nil
}

// ExpireRollovers stamps expired_at on records whose grace window has
// passed. Balances are left alone: the ROLLOVER debit already took the
// points out of current_points when the record was created.
func (s *Scheduler) ExpireRollovers(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RolloverRecord{}).
		Where("expired_at IS NULL AND expires_at <= ?", now).
		Update("expired_at", now)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire rollover records: %w: %w", apperr.ErrPersistence, res.Error)
	}
	if res.RowsAffected > 0 {
		logctx.FromCtx(ctx, s.log).Infow("rollover records expired", "count", res.RowsAffected, "now", now)
	}
	return res.RowsAffected, nil
}
