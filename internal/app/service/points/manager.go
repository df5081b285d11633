package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/mq"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/metrics"
	"github.com/fatflowers/pointsledger/pkg/tool"
	"github.com/fatflowers/pointsledger/pkg/types"
)

const defaultRolloverGraceMonths = 2

// Manager is the only writer of points_balance and points_history.
type Manager struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	db        *gorm.DB
	publisher mq.Publisher
	now       func() time.Time
	// inTx is set by WithTx; the outer caller publishes events after commit.
	inTx bool
}

func NewManager(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, publisher mq.Publisher) *Manager {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		db:        db,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a Manager bound to tx. Its mutations become savepoints of
// tx and no events are published; call Announce after tx commits.
func (m *Manager) WithTx(tx *gorm.DB) *Manager {
	clone := *m
	clone.db = tx
	clone.inTx = true
	return &clone
}

// Credit adds m.Amount points.
func (m *Manager) Credit(ctx context.Context, mut *Mutation) (*Change, error) {
	return m.apply(ctx, mut, false)
}

// Debit removes m.Amount points and fails with apperr.ErrInsufficientBalance
// instead of letting the balance go negative.
func (m *Manager) Debit(ctx context.Context, mut *Mutation) (*Change, error) {
	return m.apply(ctx, mut, true)
}

// AddPoints applies a signed delta: positive amounts credit, negative amounts debit.
func (m *Manager) AddPoints(ctx context.Context, userID string, amount int64, typ types.PointsHistoryType, description string) (*models.PointsBalance, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", apperr.ErrValidation)
	}
	mut := &Mutation{UserID: userID, Amount: amount, Type: typ, Description: description}
	var (
		change *Change
		err    error
	)
	if amount > 0 {
		change, err = m.Credit(ctx, mut)
	} else {
		mut.Amount = -amount
		change, err = m.Debit(ctx, mut)
	}
	if err != nil {
		return nil, err
	}
	return change.Balance, nil
}

// ProcessSubscriptionRenewal grants a billing period's points. Callers own
// idempotency, usually through the webhook event marker.
func (m *Manager) ProcessSubscriptionRenewal(ctx context.Context, userID, planID string, monthlyPoints int64) (*Change, error) {
	return m.Credit(ctx, &Mutation{
		UserID:      userID,
		Amount:      monthlyPoints,
		Type:        types.PointsHistoryTypeSubscription,
		Description: fmt.Sprintf("Subscription renewal for plan %s", planID),
	})
}

// ConsumeForDownload charges cost points for a download order, once per order.
func (m *Manager) ConsumeForDownload(ctx context.Context, userID, orderID string, cost int64) (*Change, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", apperr.ErrValidation)
	}
	return m.Debit(ctx, &Mutation{
		UserID:         userID,
		Amount:         cost,
		Type:           types.PointsHistoryTypeDownload,
		Description:    fmt.Sprintf("Download order %s", orderID),
		OrderID:        orderID,
		IdempotencyKey: tool.ScopedKey("download", orderID),
	})
}

// RefundOrder returns points for an order, once per order.
func (m *Manager) RefundOrder(ctx context.Context, userID, orderID string, amount int64, description string) (*Change, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order_id is required", apperr.ErrValidation)
	}
	if description == "" {
		description = fmt.Sprintf("Refund for order %s", orderID)
	}
	return m.Credit(ctx, &Mutation{
		UserID:         userID,
		Amount:         amount,
		Type:           types.PointsHistoryTypeRefund,
		Description:    description,
		OrderID:        orderID,
		IdempotencyKey: tool.ScopedKey("refund", orderID),
	})
}

// ApplyRollover closes a billing period for one subscriber: the capped
// carry-over leaves current_points into a RolloverRecord, then the plan's
// monthly allocation is granted. Everything happens in one transaction.
// in.Now drives the grace window and last_rollover; rows are stamped with
// the manager clock so history stays ordered by write time.
func (m *Manager) ApplyRollover(ctx context.Context, in *RolloverInput) (*RolloverOutcome, error) {
	if in == nil || in.UserID == "" || in.SubscriptionID == "" || in.Plan == nil {
		return nil, fmt.Errorf("%w: rollover requires user, subscription and plan", apperr.ErrValidation)
	}
	stamp := m.now()
	now := in.Now
	if now.IsZero() {
		now = stamp
	}
	start := time.Now()
	out := &RolloverOutcome{}
	err := m.transaction(ctx, func(tx *gorm.DB) error {
		if !in.PeriodEnd.IsZero() {
			key := tool.ScopedKey("rollover", fmt.Sprintf("%s:%d", in.SubscriptionID, in.PeriodEnd.Unix()))
			if err := insertIdempotencyKey(tx, key, in.UserID); err != nil {
				return err
			}
		}

		bal, err := m.lockBalance(tx, in.UserID)
		if err != nil {
			return err
		}
		toRollover := min(bal.CurrentPoints, in.Plan.MaxRolloverPoints())

		if toRollover > 0 {
			record := &models.RolloverRecord{
				ID:             tool.GenerateUUIDV7(),
				UserID:         in.UserID,
				SubscriptionID: in.SubscriptionID,
				Amount:         toRollover,
				ExpiresAt:      now.AddDate(0, m.graceMonths(), 0),
				CreatedAt:      stamp,
			}
			if err := tx.Create(record).Error; err != nil {
				return persistence("create rollover record", err)
			}
			out.Record = record
			out.RolledOver = toRollover

			c, err := m.applyTx(tx, &Mutation{
				UserID:      in.UserID,
				Amount:      toRollover,
				Type:        types.PointsHistoryTypeRollover,
				Description: fmt.Sprintf("Rollover of %d points to next period", toRollover),
			}, true, stamp)
			if err != nil {
				return err
			}
			out.Changes = append(out.Changes, c)
		}

		if in.Plan.Points > 0 {
			c, err := m.applyTx(tx, &Mutation{
				UserID:      in.UserID,
				Amount:      in.Plan.Points,
				Type:        types.PointsHistoryTypeMonthlyAllocation,
				Description: fmt.Sprintf("Monthly allocation for plan %s", in.Plan.ID),
			}, false, stamp)
			if err != nil {
				return err
			}
			out.Allocated = in.Plan.Points
			out.Changes = append(out.Changes, c)
		}

		if err := tx.Model(&models.PointsBalance{}).
			Where("user_id = ?", in.UserID).
			Update("last_rollover", now).Error; err != nil {
			return persistence("update last_rollover", err)
		}
		for _, c := range out.Changes {
			c.Balance.LastRollover = &now
		}
		return nil
	})
	metrics.ObserveBusinessProcess("points", "rollover", start)
	if err != nil {
		metrics.Inc(metrics.MetricsLedgerMutations, string(types.PointsHistoryTypeRollover), "failed")
		return nil, classify(err)
	}
	if !m.inTx {
		m.Announce(ctx, out.Changes...)
	}
	return out, nil
}

func (m *Manager) graceMonths() int {
	if m.cfg != nil && m.cfg.Rollover.GraceMonths > 0 {
		return m.cfg.Rollover.GraceMonths
	}
	return defaultRolloverGraceMonths
}

func validateMutation(mut *Mutation) error {
	if mut == nil {
		return fmt.Errorf("%w: nil mutation", apperr.ErrValidation)
	}
	if strings.TrimSpace(mut.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", apperr.ErrValidation)
	}
	if mut.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}
	if !mut.Type.Valid() {
		return fmt.Errorf("%w: unknown points history type %q", apperr.ErrValidation, mut.Type)
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, mut *Mutation, debit bool) (*Change, error) {
	if err := validateMutation(mut); err != nil {
		return nil, err
	}
	start := time.Now()
	var change *Change
	err := m.transaction(ctx, func(tx *gorm.DB) error {
		if mut.IdempotencyKey != "" {
			if err := insertIdempotencyKey(tx, mut.IdempotencyKey, mut.UserID); err != nil {
				return err
			}
		}
		c, err := m.applyTx(tx, mut, debit, m.now())
		if err != nil {
			return err
		}
		change = c
		return nil
	})
	metrics.ObserveBusinessProcess("points", string(mut.Type), start)

	lg := logctx.FromCtx(ctx, m.log)
	if err != nil {
		err = classify(err)
		outcome := "failed"
		if errors.Is(err, apperr.ErrAlreadyApplied) {
			outcome = "duplicate"
		}
		metrics.Inc(metrics.MetricsLedgerMutations, string(mut.Type), outcome)
		lg.Warnw("points mutation rejected", "user_id", mut.UserID, "type", mut.Type, "amount", mut.Amount, "debit", debit, "err", err)
		return nil, err
	}

	metrics.Inc(metrics.MetricsLedgerMutations, string(mut.Type), "applied")
	direction := "credit"
	if debit {
		direction = "debit"
	}
	metrics.Add(metrics.MetricsLedgerPoints, float64(mut.Amount), direction)
	lg.Infow("points mutation applied",
		"user_id", mut.UserID,
		"type", mut.Type,
		"amount", change.History.Amount,
		"balance_after", change.History.BalanceAfter,
	)
	if !m.inTx {
		m.Announce(ctx, change)
	}
	return change, nil
}

func (m *Manager) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

// applyTx performs one balance update and its history row inside tx.
func (m *Manager) applyTx(tx *gorm.DB, mut *Mutation, debit bool, now time.Time) (*Change, error) {
	if err := validateMutation(mut); err != nil {
		return nil, err
	}
	bal, err := m.lockBalance(tx, mut.UserID)
	if err != nil {
		return nil, err
	}

	delta := mut.Amount
	if debit {
		if bal.CurrentPoints < mut.Amount {
			return nil, fmt.Errorf("%w: user %s has %d points, needs %d",
				apperr.ErrInsufficientBalance, mut.UserID, bal.CurrentPoints, mut.Amount)
		}
		delta = -mut.Amount
		bal.TotalUsed += mut.Amount
	} else {
		bal.TotalPurchased += mut.Amount
	}
	bal.CurrentPoints += delta
	bal.UpdatedAt = now

	if err := tx.Model(&models.PointsBalance{}).
		Where("user_id = ?", mut.UserID).
		Updates(map[string]any{
			"current_points":  bal.CurrentPoints,
			"total_purchased": bal.TotalPurchased,
			"total_used":      bal.TotalUsed,
			"updated_at":      now,
		}).Error; err != nil {
		return nil, persistence("update balance", err)
	}

	history := &models.PointsHistory{
		ID:           tool.GenerateUUIDV7(),
		UserID:       mut.UserID,
		Type:         mut.Type,
		Amount:       delta,
		BalanceAfter: bal.CurrentPoints,
		Description:  mut.Description,
		CreatedAt:    now,
	}
	if mut.OrderID != "" {
		orderID := mut.OrderID
		history.OrderID = &orderID
	}
	if err := tx.Create(history).Error; err != nil {
		return nil, persistence("append history", err)
	}

	snapshot := *bal
	return &Change{Balance: &snapshot, History: history}, nil
}

// lockBalance makes sure the user exists, creates the balance row on first
// use and locks it for the rest of tx.
func (m *Manager) lockBalance(tx *gorm.DB, userID string) (*models.PointsBalance, error) {
	var users int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
		return nil, persistence("check user", err)
	}
	if users == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PointsBalance{UserID: userID}).Error; err != nil {
		return nil, persistence("init balance", err)
	}

	var bal models.PointsBalance
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&bal).Error; err != nil {
		return nil, persistence("lock balance", err)
	}
	return &bal, nil
}

func insertIdempotencyKey(tx *gorm.DB, key, userID string) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PointsIdempotencyKey{Key: key, UserID: userID})
	if res.Error != nil {
		return persistence("insert idempotency key", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyApplied, key)
	}
	return nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, apperr.ErrPersistence, err)
}

// classify tags unexpected transaction errors (begin/commit) as persistence errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		apperr.ErrValidation,
		apperr.ErrNotFound,
		apperr.ErrPersistence,
		apperr.ErrInsufficientBalance,
		apperr.ErrAlreadyApplied,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return persistence("run transaction", err)
}
