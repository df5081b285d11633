package payment_event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/subscription"
	webhooklog "github.com/fatflowers/pointsledger/internal/app/service/webhook_log"
	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/mailer"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/metrics"
	"github.com/fatflowers/pointsledger/pkg/tool"
	"github.com/fatflowers/pointsledger/pkg/types"
)

const providerStripe = "stripe"

// Stripe event types the translator acts on.
const (
	EventCheckoutSessionCompleted    stripe.EventType = "checkout.session.completed"
	EventCustomerSubscriptionUpdated stripe.EventType = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted stripe.EventType = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded     stripe.EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        stripe.EventType = "invoice.payment_failed"
)

// Translator turns verified Stripe events into ledger and subscription changes.
type Translator struct {
	cfg        *config.Config
	db         *gorm.DB
	log        *zap.SugaredLogger
	points     *points.Manager
	subs       *subscription.Service
	webhookLog *webhooklog.Service
	mail       mailer.Sender
	now        func() time.Time
	mailWG     sync.WaitGroup
}

func NewTranslator(
	cfg *config.Config,
	db *gorm.DB,
	log *zap.SugaredLogger,
	pm *points.Manager,
	subs *subscription.Service,
	webhookLog *webhooklog.Service,
	mail mailer.Sender,
) *Translator {
	if mail == nil {
		mail = mailer.NopSender{}
	}
	return &Translator{
		cfg:        cfg,
		db:         db,
		log:        log,
		points:     pm,
		subs:       subs,
		webhookLog: webhookLog,
		mail:       mail,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// outcome collects what a handled event changed, for the post-commit steps.
type outcome struct {
	UserID       string               `json:"user_id,omitempty"`
	Ignored      string               `json:"ignored,omitempty"`
	Rejected     string               `json:"rejected,omitempty"`
	Changes      []*points.Change     `json:"changes,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	receipt      *purchaseConfirmation
}

func (o *outcome) ignore(reason string) error {
	o.Ignored = reason
	return nil
}

// reject drops whatever the payload already produced; the event stays
// marked as processed since a redelivery carries the same payload.
func (o *outcome) reject(err error) error {
	o.Rejected = err.Error()
	o.Changes = nil
	o.Subscription = nil
	o.receipt = nil
	return nil
}

type purchaseConfirmation struct {
	userID  string
	email   string
	item    string
	points  int64
	balance int64
}

// Handle applies event at most once. duplicate is true when the event id was
// already processed; nothing changes in that case. A non-nil error rolls
// back every change including the processed marker, so a redelivery retries.
// Malformed payloads are rejected instead: the marker stays and err is nil.
func (t *Translator) Handle(ctx context.Context, event *stripe.Event) (duplicate bool, err error) {
	if event == nil || event.ID == "" {
		return false, fmt.Errorf("%w: event id is required", apperr.ErrValidation)
	}
	start := time.Now()
	eventType := string(event.Type)
	lg := logctx.FromCtx(ctx, t.log).With("event_id", event.ID, "event_type", eventType)
	t.saveLog(ctx, event, models.WebhookEventLogStatusReceived, nil, nil)

	out := &outcome{}
	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ProcessedPaymentEvent{EventID: event.ID, Type: eventType})
		if res.Error != nil {
			return fmt.Errorf("failed to mark event processed: %w: %w", apperr.ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			duplicate = true
			return nil
		}
		err := tx.Transaction(func(inner *gorm.DB) error {
			return t.dispatch(ctx, inner, event, out)
		})
		if errors.Is(err, apperr.ErrValidation) {
			return out.reject(err)
		}
		return err
	})

	metrics.Observe(metrics.MetricsWebhookDuration, metrics.MillisecondsSince(start), eventType)
	switch {
	case err != nil:
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, "failed")
		lg.Errorw("stripe event handling failed", "err", err)
		t.saveLog(ctx, event, models.WebhookEventLogStatusHandleFailed, out, err)
		return false, err
	case duplicate:
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, "duplicate")
		lg.Infow("stripe event already processed")
		t.saveLog(ctx, event, models.WebhookEventLogStatusDuplicate, nil, nil)
		return true, nil
	}

	if out.Rejected != "" {
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, "rejected")
		lg.Warnw("stripe event rejected", "reason", out.Rejected)
		t.saveLog(ctx, event, models.WebhookEventLogStatusRejected, out, nil)
		return false, nil
	}
	if out.Ignored != "" {
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, "ignored")
		lg.Infow("stripe event ignored", "reason", out.Ignored)
	} else {
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, "handled")
		lg.Infow("stripe event handled", "user_id", out.UserID, "changes", len(out.Changes))
	}
	t.points.Announce(ctx, out.Changes...)
	t.sendConfirmation(ctx, out.receipt)
	t.saveLog(ctx, event, models.WebhookEventLogStatusHandled, out, nil)
	return false, nil
}

// Wait blocks until queued confirmation e-mails are sent.
func (t *Translator) Wait() {
	t.mailWG.Wait()
}

func (t *Translator) dispatch(ctx context.Context, tx *gorm.DB, event *stripe.Event, out *outcome) error {
	if event.Data == nil {
		return out.ignore("event carries no data object")
	}
	switch event.Type {
	case EventCheckoutSessionCompleted:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("%w: decode checkout.session: %w", apperr.ErrValidation, err)
		}
		return t.handleCheckout(ctx, tx, event.ID, &session, out)
	case EventCustomerSubscriptionUpdated:
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: decode subscription: %w", apperr.ErrValidation, err)
		}
		return t.handleSubscriptionUpdated(ctx, tx, event.ID, &sub, out)
	case EventCustomerSubscriptionDeleted:
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: decode subscription: %w", apperr.ErrValidation, err)
		}
		return t.handleSubscriptionDeleted(ctx, tx, event.ID, &sub, out)
	case EventInvoicePaymentSucceeded:
		var inv stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%w: decode invoice: %w", apperr.ErrValidation, err)
		}
		return t.handleInvoicePaid(ctx, tx, event.ID, &inv, out)
	case EventInvoicePaymentFailed:
		var inv stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%w: decode invoice: %w", apperr.ErrValidation, err)
		}
		return t.handleInvoiceFailed(ctx, tx, event.ID, &inv, out)
	default:
		return out.ignore("unhandled event type")
	}
}

func (t *Translator) handleCheckout(ctx context.Context, tx *gorm.DB, eventID string, session *checkoutSession, out *outcome) error {
	userID := session.meta(metadataUserID)
	if userID == "" {
		return fmt.Errorf("%w: checkout session %s has no userId metadata", apperr.ErrValidation, session.ID)
	}
	out.UserID = userID
	pm := t.points.WithTx(tx)

	if packID := session.meta(metadataPackID); packID != "" {
		amount, ok, err := session.pointsAmount()
		if err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
		}
		pack := t.cfg.GetPointPackByID(packID)
		if !ok {
			if pack == nil {
				return fmt.Errorf("point pack %s: %w", packID, apperr.ErrNotFound)
			}
			amount = pack.Points
		}
		item := packID
		if pack != nil && pack.Name != "" {
			item = pack.Name
		}
		change, err := pm.Credit(ctx, &points.Mutation{
			UserID:         userID,
			Amount:         amount,
			Type:           types.PointsHistoryTypePurchasePack,
			Description:    fmt.Sprintf("Point pack purchase: %s", item),
			OrderID:        session.ID,
			IdempotencyKey: tool.ScopedKey(providerStripe, eventID),
		})
		if err != nil {
			return err
		}
		out.Changes = append(out.Changes, change)
		out.receipt = &purchaseConfirmation{userID: userID, email: session.email(), item: item, points: amount, balance: change.Balance.CurrentPoints}
		return nil
	}

	if planID := session.meta(metadataPlanID); planID != "" {
		plan := t.cfg.GetPlanByID(planID)
		if plan == nil {
			return fmt.Errorf("plan %s: %w", planID, apperr.ErrNotFound)
		}
		// Subscription row before balance row, the order the rollover sweep locks in.
		if session.Subscription != "" {
			sub, err := t.subs.UpsertFromCheckout(ctx, tx, &subscription.CheckoutRequest{
				UserID:               userID,
				PlanID:               plan.ID,
				StripeSubscriptionID: session.Subscription,
				StripeCustomerID:     session.Customer,
				EventID:              eventID,
				Now:                  t.now(),
			})
			if err != nil {
				return err
			}
			out.Subscription = sub
		}
		change, err := pm.Credit(ctx, &points.Mutation{
			UserID:         userID,
			Amount:         plan.Points,
			Type:           types.PointsHistoryTypePurchase,
			Description:    fmt.Sprintf("Subscription purchase: %s", lo.CoalesceOrEmpty(plan.Name, plan.ID)),
			OrderID:        session.ID,
			IdempotencyKey: tool.ScopedKey(providerStripe, eventID),
		})
		if err != nil {
			return err
		}
		out.Changes = append(out.Changes, change)
		out.receipt = &purchaseConfirmation{
			userID:  userID,
			email:   session.email(),
			item:    lo.CoalesceOrEmpty(plan.Name, plan.ID),
			points:  plan.Points,
			balance: change.Balance.CurrentPoints,
		}
		return nil
	}

	return out.ignore("checkout session has neither packId nor planId")
}

func (t *Translator) handleSubscriptionUpdated(ctx context.Context, tx *gorm.DB, eventID string, obj *stripeSubscription, out *outcome) error {
	start, end := obj.period()
	sub, err := t.subs.ApplyStripeUpdate(ctx, tx, obj.ID, &subscription.StripeUpdate{
		Status:             obj.Status,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		CancelAtPeriodEnd:  obj.CancelAtPeriodEnd,
		EventID:            eventID,
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return out.ignore("unknown subscription " + obj.ID)
	}
	if err != nil {
		return err
	}
	out.UserID = sub.UserID
	out.Subscription = sub
	return nil
}

func (t *Translator) handleSubscriptionDeleted(ctx context.Context, tx *gorm.DB, eventID string, obj *stripeSubscription, out *outcome) error {
	sub, err := t.subs.Cancel(ctx, tx, obj.ID, obj.canceledAt(t.now()), eventID)
	if errors.Is(err, apperr.ErrNotFound) {
		return out.ignore("unknown subscription " + obj.ID)
	}
	if err != nil {
		return err
	}
	out.UserID = sub.UserID
	out.Subscription = sub
	return nil
}

// handleInvoicePaid grants the renewal points. A subscription or plan that
// is missing locally fails the delivery so Stripe retries it once the
// checkout event has landed.
func (t *Translator) handleInvoicePaid(ctx context.Context, tx *gorm.DB, eventID string, inv *stripeInvoice, out *outcome) error {
	subID := inv.subscriptionID()
	if subID == "" {
		return out.ignore("invoice is not tied to a subscription")
	}
	if inv.BillingReason == billingReasonSubscriptionCreate {
		return out.ignore("first invoice is covered by checkout")
	}
	sub, err := t.subs.GetByStripeID(ctx, tx, subID, true)
	if err != nil {
		return err
	}
	plan := t.cfg.GetPlanByID(sub.PlanID)
	if plan == nil {
		return fmt.Errorf("plan %s: %w", sub.PlanID, apperr.ErrNotFound)
	}
	out.UserID = sub.UserID

	change, err := t.points.WithTx(tx).ProcessSubscriptionRenewal(ctx, sub.UserID, plan.ID, plan.Points)
	if err != nil {
		return err
	}
	out.Changes = append(out.Changes, change)

	start, end := inv.period()
	renewed, err := t.subs.RecordRenewal(ctx, tx, sub, start, end, eventID)
	if err != nil {
		return err
	}
	out.Subscription = renewed
	return nil
}

func (t *Translator) handleInvoiceFailed(ctx context.Context, tx *gorm.DB, eventID string, inv *stripeInvoice, out *outcome) error {
	subID := inv.subscriptionID()
	if subID == "" {
		return out.ignore("invoice is not tied to a subscription")
	}
	sub, err := t.subs.MarkPastDue(ctx, tx, subID, eventID)
	if errors.Is(err, apperr.ErrNotFound) {
		return out.ignore("unknown subscription " + subID)
	}
	if err != nil {
		return err
	}
	out.UserID = sub.UserID
	out.Subscription = sub
	return nil
}

// sendConfirmation mails the buyer in the background. Failures are logged.
func (t *Translator) sendConfirmation(ctx context.Context, r *purchaseConfirmation) {
	if r == nil {
		return
	}
	lg := logctx.FromCtx(ctx, t.log)
	to := r.email
	if to == "" {
		var user models.User
		if err := t.db.WithContext(ctx).Select("email").Where("id = ?", r.userID).First(&user).Error; err != nil {
			lg.Warnw("failed to look up confirmation recipient", "user_id", r.userID, "err", err)
			return
		}
		to = user.Email
	}
	if to == "" {
		return
	}
	subject := fmt.Sprintf("Your purchase: %s", r.item)
	body := fmt.Sprintf("<p>Thanks for your purchase of <b>%s</b>.</p><p>%d points were added to your account. Your balance is now %d points.</p>",
		html.EscapeString(r.item), r.points, r.balance)

	mailCtx := context.WithoutCancel(ctx)
	t.mailWG.Go(func() {
		if err := t.mail.Send(mailCtx, to, subject, body); err != nil {
			lg.Warnw("failed to send purchase confirmation", "user_id", r.userID, "err", err)
		}
	})
}

func (t *Translator) saveLog(ctx context.Context, event *stripe.Event, status models.WebhookEventLogStatus, out *outcome, handleErr error) {
	if t.webhookLog == nil {
		return
	}
	var data []byte
	if event.Data != nil {
		data = event.Data.Raw
	}
	entry := &models.WebhookEventLog{
		Provider:  providerStripe,
		EventID:   event.ID,
		EventType: string(event.Type),
		Data:      datatypes.JSON(lo.Ternary(len(data) > 0, data, []byte("{}"))),
		Status:    status,
	}
	if out != nil && out.UserID != "" {
		entry.UserID = lo.ToPtr(out.UserID)
	}
	if out != nil || handleErr != nil {
		result := map[string]any{}
		if out != nil {
			result["outcome"] = out
		}
		if handleErr != nil {
			result["error"] = handleErr.Error()
		}
		if b, err := json.Marshal(result); err == nil {
			j := datatypes.JSON(b)
			entry.Result = &j
		}
	}
	t.webhookLog.Save(ctx, entry)
}
