package points

import (
	"context"
	"strings"

	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/tool"
)

// RoutingKey is the AMQP routing key of a ledger event, e.g. points.purchase_pack.
func (e *LedgerEvent) RoutingKey() string {
	return "points." + strings.ToLower(string(e.Type))
}

func newLedgerEvent(c *Change) *LedgerEvent {
	ev := &LedgerEvent{
		EventID:      tool.GenerateUUIDV7(),
		HistoryID:    c.History.ID,
		UserID:       c.History.UserID,
		Type:         c.History.Type,
		Amount:       c.History.Amount,
		BalanceAfter: c.History.BalanceAfter,
		OccurredAt:   c.History.CreatedAt,
	}
	if c.History.OrderID != nil {
		ev.OrderID = *c.History.OrderID
	}
	return ev
}

// Announce publishes committed changes. Publishing is best effort: failures
// are logged and never reach the caller.
func (m *Manager) Announce(ctx context.Context, changes ...*Change) {
	lg := logctx.FromCtx(ctx, m.log)
	for _, c := range changes {
		if c == nil || c.History == nil {
			continue
		}
		ev := newLedgerEvent(c)
		if err := m.publisher.Publish(ctx, ev.RoutingKey(), ev); err != nil {
			lg.Warnw("failed to publish ledger event", "routing_key", ev.RoutingKey(), "history_id", ev.HistoryID, "err", err)
		}
	}
}
