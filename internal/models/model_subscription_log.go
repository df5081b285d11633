package models

import (
	"time"

	"github.com/fatflowers/pointsledger/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionLog records changes to user subscriptions.
// Use case: troubleshooting.
type SubscriptionLog struct {
	ID             string                         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID         string                         `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	SubscriptionID string                         `gorm:"column:subscription_id;type:varchar(36);not null;index" json:"subscription_id"`
	Reason         types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`

	// Before is nil for the first log row of a subscription.
	Before datatypes.JSONType[*Subscription] `gorm:"column:before" json:"before"`
	After  datatypes.JSONType[*Subscription] `gorm:"column:after" json:"after"`

	// Extra carries the trigger source, e.g. the Stripe event id.
	Extra     datatypes.JSONMap `gorm:"column:extra" json:"extra"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
