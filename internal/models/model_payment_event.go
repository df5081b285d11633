package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessedPaymentEvent marks a Stripe event as applied.
type ProcessedPaymentEvent struct {
	EventID   string    `gorm:"column:event_id;type:varchar(128);primaryKey" json:"event_id"`
	Type      string    `gorm:"column:type;type:varchar(128);not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProcessedPaymentEvent) TableName() string {
	return "processed_payment_event"
}

type WebhookEventLogStatus string

const (
	WebhookEventLogStatusReceived     WebhookEventLogStatus = "received"
	WebhookEventLogStatusHandled      WebhookEventLogStatus = "handled"
	WebhookEventLogStatusDuplicate    WebhookEventLogStatus = "duplicate"
	WebhookEventLogStatusHandleFailed WebhookEventLogStatus = "handle_failed"
	WebhookEventLogStatusRejected     WebhookEventLogStatus = "rejected"
)

// WebhookEventLog keeps one row per delivery stage of a webhook event.
type WebhookEventLog struct {
	ID        string                `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Provider  string                `gorm:"column:provider;type:varchar(32);not null" json:"provider"`
	EventID   string                `gorm:"column:event_id;type:varchar(128);index" json:"event_id"`
	EventType string                `gorm:"column:event_type;type:varchar(128)" json:"event_type"`
	UserID    *string               `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID   string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data      datatypes.JSON        `gorm:"column:data" json:"data"`
	Result    *datatypes.JSON       `gorm:"column:result" json:"result"`
	Status    WebhookEventLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

func (WebhookEventLog) TableName() string {
	return "webhook_event_log"
}

// All returns every model owned by this service, in migration order.
func All() []any {
	return []any{
		&User{},
		&PointsBalance{},
		&PointsHistory{},
		&RolloverRecord{},
		&PointsIdempotencyKey{},
		&Subscription{},
		&SubscriptionLog{},
		&ProcessedPaymentEvent{},
		&WebhookEventLog{},
	}
}
