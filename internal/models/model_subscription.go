package models

import (
	"time"

	"github.com/fatflowers/pointsledger/pkg/types"
)

// Subscription mirrors a Stripe subscription for one user.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PlanID               string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(128);not null;uniqueIndex" json:"stripe_subscription_id"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id;type:varchar(128)" json:"stripe_customer_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index:idx_subscription_status_period_end,priority:1" json:"status"`
	CurrentPeriodStart   time.Time                `gorm:"column:current_period_start;not null" json:"current_period_start"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end;not null;index:idx_subscription_status_period_end,priority:2" json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time               `gorm:"column:canceled_at" json:"canceled_at"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Due reports whether the subscription is ACTIVE and its period has ended.
func (s *Subscription) Due(now time.Time) bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		!s.CurrentPeriodEnd.After(now)
}
