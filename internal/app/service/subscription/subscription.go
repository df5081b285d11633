package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/tool"
	types "github.com/fatflowers/pointsledger/pkg/types"
)

type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// CheckoutRequest creates or refreshes the local mirror of a Stripe subscription.
type CheckoutRequest struct {
	UserID               string
	PlanID               string
	StripeSubscriptionID string
	StripeCustomerID     string
	EventID              string
	Now                  time.Time
}

// StripeUpdate carries the fields of customer.subscription.updated we mirror.
type StripeUpdate struct {
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	EventID            string
}

// conn returns tx when the caller runs inside a transaction, s.db otherwise.
func (s *Service) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx)
}

// UpsertFromCheckout marks the subscription ACTIVE for one month from req.Now.
func (s *Service) UpsertFromCheckout(ctx context.Context, tx *gorm.DB, req *CheckoutRequest) (*models.Subscription, error) {
	if req == nil || req.UserID == "" || req.StripeSubscriptionID == "" {
		return nil, fmt.Errorf("%w: user id and stripe subscription id are required", apperr.ErrValidation)
	}
	if s.cfg.GetPlanByID(req.PlanID) == nil {
		return nil, fmt.Errorf("plan %s: %w", req.PlanID, apperr.ErrNotFound)
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	original, err := s.findByStripeID(ctx, tx, req.StripeSubscriptionID, false)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	sub := &models.Subscription{}
	if original != nil {
		cp := *original
		sub = &cp
	} else {
		sub.ID = tool.GenerateUUIDV7()
		sub.StripeSubscriptionID = req.StripeSubscriptionID
	}
	sub.UserID = req.UserID
	sub.PlanID = req.PlanID
	if req.StripeCustomerID != "" {
		sub.StripeCustomerID = req.StripeCustomerID
	}
	sub.Status = types.SubscriptionStatusActive
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = now.AddDate(0, 1, 0)
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil

	if err := s.save(ctx, tx, original, sub, types.SubscriptionChangeReasonCheckout, req.EventID); err != nil {
		return nil, err
	}
	return sub, nil
}

// ApplyStripeUpdate mirrors status, period bounds and the cancel flag.
func (s *Service) ApplyStripeUpdate(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, upd *StripeUpdate) (*models.Subscription, error) {
	return s.mutate(ctx, tx, stripeSubscriptionID, types.SubscriptionChangeReasonStripeUpdate, upd.EventID, func(sub *models.Subscription) {
		sub.Status = types.SubscriptionStatusFromStripe(upd.Status)
		if !upd.CurrentPeriodStart.IsZero() {
			sub.CurrentPeriodStart = upd.CurrentPeriodStart
		}
		if !upd.CurrentPeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = upd.CurrentPeriodEnd
		}
		sub.CancelAtPeriodEnd = upd.CancelAtPeriodEnd
	})
}

// Cancel marks the subscription CANCELED at canceledAt.
func (s *Service) Cancel(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, canceledAt time.Time, eventID string) (*models.Subscription, error) {
	return s.mutate(ctx, tx, stripeSubscriptionID, types.SubscriptionChangeReasonStripeDelete, eventID, func(sub *models.Subscription) {
		sub.Status = types.SubscriptionStatusCanceled
		at := canceledAt
		sub.CanceledAt = &at
	})
}

// MarkPastDue records a failed invoice payment.
func (s *Service) MarkPastDue(ctx context.Context, tx *gorm.DB, stripeSubscriptionID, eventID string) (*models.Subscription, error) {
	return s.mutate(ctx, tx, stripeSubscriptionID, types.SubscriptionChangeReasonPaymentFailed, eventID, func(sub *models.Subscription) {
		sub.Status = types.SubscriptionStatusPastDue
	})
}

// RecordRenewal reactivates the subscription for the invoiced period.
func (s *Service) RecordRenewal(ctx context.Context, tx *gorm.DB, sub *models.Subscription, periodStart, periodEnd time.Time, eventID string) (*models.Subscription, error) {
	return s.update(ctx, tx, sub, types.SubscriptionChangeReasonRenewal, eventID, func(next *models.Subscription) {
		next.Status = types.SubscriptionStatusActive
		if !periodStart.IsZero() {
			next.CurrentPeriodStart = periodStart
		}
		if !periodEnd.IsZero() {
			next.CurrentPeriodEnd = periodEnd
		}
	})
}

// AdvancePeriod starts a new one-month period at now after a rollover.
func (s *Service) AdvancePeriod(ctx context.Context, tx *gorm.DB, sub *models.Subscription, now time.Time) (*models.Subscription, error) {
	return s.update(ctx, tx, sub, types.SubscriptionChangeReasonRollover, "", func(next *models.Subscription) {
		next.CurrentPeriodStart = now
		next.CurrentPeriodEnd = now.AddDate(0, 1, 0)
	})
}

// GetByStripeID loads a subscription by its Stripe id; forUpdate locks the row.
func (s *Service) GetByStripeID(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, forUpdate bool) (*models.Subscription, error) {
	return s.findByStripeID(ctx, tx, stripeSubscriptionID, forUpdate)
}

// LockByID re-reads a subscription under a row lock.
func (s *Service) LockByID(ctx context.Context, tx *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.conn(ctx, tx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock subscription: %w: %w", apperr.ErrPersistence, err)
	}
	return &sub, nil
}

// ListDue returns ACTIVE subscriptions whose period ended at or before now.
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := s.conn(ctx, nil).
		Where("status = ? AND current_period_end <= ?", types.SubscriptionStatusActive, now).
		Order("current_period_end ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w: %w", apperr.ErrPersistence, err)
	}
	return subs, nil
}

// GetActiveByUser returns the user's most recent ACTIVE subscription, or nil.
func (s *Service) GetActiveByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.conn(ctx, nil).
		Where("user_id = ? AND status = ?", userID, types.SubscriptionStatusActive).
		Order("current_period_end DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w: %w", apperr.ErrPersistence, err)
	}
	return &sub, nil
}

func (s *Service) findByStripeID(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, forUpdate bool) (*models.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, fmt.Errorf("%w: stripe subscription id is required", apperr.ErrValidation)
	}
	q := s.conn(ctx, tx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sub models.Subscription
	err := q.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription %s: %w", stripeSubscriptionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w: %w", apperr.ErrPersistence, err)
	}
	return &sub, nil
}

func (s *Service) mutate(ctx context.Context, tx *gorm.DB, stripeSubscriptionID string, reason types.SubscriptionChangeReason, eventID string, apply func(*models.Subscription)) (*models.Subscription, error) {
	original, err := s.findByStripeID(ctx, tx, stripeSubscriptionID, true)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, tx, original, reason, eventID, apply)
}

func (s *Service) update(ctx context.Context, tx *gorm.DB, original *models.Subscription, reason types.SubscriptionChangeReason, eventID string, apply func(*models.Subscription)) (*models.Subscription, error) {
	next := *original
	apply(&next)
	if err := s.save(ctx, tx, original, &next, reason, eventID); err != nil {
		return nil, err
	}
	return &next, nil
}

// save persists after and its change log row in the same transaction.
func (s *Service) save(ctx context.Context, tx *gorm.DB, before, after *models.Subscription, reason types.SubscriptionChangeReason, eventID string) error {
	db := s.conn(ctx, tx)
	if err := db.Save(after).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w: %w", apperr.ErrPersistence, err)
	}

	extra := datatypes.JSONMap{}
	if eventID != "" {
		extra["event_id"] = eventID
	}
	if tid := logctx.TraceID(ctx); tid != "" {
		extra["trace_id"] = tid
	}
	entry := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         after.UserID,
		SubscriptionID: after.ID,
		Reason:         reason,
		Before:         datatypes.NewJSONType(before),
		After:          datatypes.NewJSONType(after),
		Extra:          extra,
	}
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save subscription log: %w: %w", apperr.ErrPersistence, err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription changed",
		"subscription_id", after.ID,
		"stripe_subscription_id", after.StripeSubscriptionID,
		"user_id", after.UserID,
		"reason", reason,
		"status", after.Status,
		"period_end", after.CurrentPeriodEnd,
	)
	return nil
}
