package models

import (
	"time"

	"github.com/fatflowers/pointsledger/pkg/types"
)

// PointsBalance is the running balance of a single user. The row is created
// lazily by the first write; readers fall back to a zero value.
type PointsBalance struct {
	UserID        string `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	CurrentPoints int64  `gorm:"column:current_points;not null;default:0" json:"current_points"`

	// TotalPurchased and TotalUsed only ever grow.
	TotalPurchased int64      `gorm:"column:total_purchased;not null;default:0" json:"total_purchased"`
	TotalUsed      int64      `gorm:"column:total_used;not null;default:0" json:"total_used"`
	LastRollover   *time.Time `gorm:"column:last_rollover" json:"last_rollover"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (PointsBalance) TableName() string {
	return "points_balance"
}

// PointsHistory is the append-only audit trail; one row per balance mutation.
type PointsHistory struct {
	ID     string                  `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID string                  `gorm:"column:user_id;type:varchar(64);not null;index:idx_points_history_user_created,priority:1" json:"user_id"`
	Type   types.PointsHistoryType `gorm:"column:type;type:varchar(32);not null" json:"type"`

	// Amount is signed: positive credits, negative debits.
	Amount       int64     `gorm:"column:amount;not null" json:"amount"`
	BalanceAfter int64     `gorm:"column:balance_after;not null" json:"balance_after"`
	Description  string    `gorm:"column:description;type:varchar(512)" json:"description"`
	OrderID      *string   `gorm:"column:order_id;type:varchar(128);index" json:"order_id,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index:idx_points_history_user_created,priority:2" json:"created_at"`
}

func (PointsHistory) TableName() string {
	return "points_history"
}

// RolloverRecord tracks points carried out of a billing period.
type RolloverRecord struct {
	ID             string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID         string     `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	SubscriptionID string     `gorm:"column:subscription_id;type:varchar(36);not null;index" json:"subscription_id"`
	Amount         int64      `gorm:"column:amount;not null" json:"amount"`
	ExpiresAt      time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`
	ExpiredAt      *time.Time `gorm:"column:expired_at" json:"expired_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (RolloverRecord) TableName() string {
	return "rollover_record"
}

// Active reports whether the record is still within its grace window at now.
func (r *RolloverRecord) Active(now time.Time) bool {
	return r != nil && r.ExpiredAt == nil && r.ExpiresAt.After(now)
}

// PointsIdempotencyKey guards a single mutation; it is inserted in the same
// transaction as the balance update.
type PointsIdempotencyKey struct {
	Key       string    `gorm:"column:key;type:varchar(191);primaryKey" json:"key"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PointsIdempotencyKey) TableName() string {
	return "points_idempotency_key"
}
