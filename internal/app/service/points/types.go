package points

import (
	"time"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/types"
)

// Mutation describes a single credit or debit. Amount is always positive;
// the direction comes from the operation that applies it.
type Mutation struct {
	UserID      string
	Amount      int64
	Type        types.PointsHistoryType
	Description string
	// OrderID links the history row to a download order, invoice or checkout session.
	OrderID string
	// IdempotencyKey, when set, makes the mutation apply at most once.
	IdempotencyKey string
}

// Change is the outcome of one applied mutation.
type Change struct {
	Balance *models.PointsBalance `json:"balance"`
	History *models.PointsHistory `json:"history"`
}

// RolloverInput carries everything a period-boundary rollover needs.
type RolloverInput struct {
	UserID         string
	SubscriptionID string
	Plan           *types.SubscriptionPlan
	// PeriodEnd is the end of the period being closed; it scopes the
	// idempotency key so one period rolls over once.
	PeriodEnd time.Time
	Now       time.Time
}

type RolloverOutcome struct {
	RolledOver int64                  `json:"rolled_over"`
	Allocated  int64                  `json:"allocated"`
	Record     *models.RolloverRecord `json:"record,omitempty"`
	Changes    []*Change              `json:"-"`
}

// Reconciliation compares the stored balance with the replayed history.
type Reconciliation struct {
	UserID        string `json:"user_id"`
	CurrentPoints int64  `json:"current_points"`
	HistorySum    int64  `json:"history_sum"`
	HistoryRows   int64  `json:"history_rows"`
	Difference    int64  `json:"difference"`
	Consistent    bool   `json:"consistent"`
}

// ScanHistoryRequest is the admin listing request.
type ScanHistoryRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanHistoryResponse struct {
	Items []*models.PointsHistory `json:"items"`
	Total int64                   `json:"total"`
}

// LedgerEvent is published after a mutation commits.
type LedgerEvent struct {
	EventID      string                  `json:"event_id"`
	HistoryID    string                  `json:"history_id"`
	UserID       string                  `json:"user_id"`
	Type         types.PointsHistoryType `json:"type"`
	Amount       int64                   `json:"amount"`
	BalanceAfter int64                   `json:"balance_after"`
	OrderID      string                  `json:"order_id,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}
