package metrics

var (
	// MetricsLedgerMutations counts balance mutations by history type and outcome.
	MetricsLedgerMutations = &Metric{
		ID:          "ledgerMutations",
		Name:        "ledger_mutations_total",
		Description: "Points mutations by history type and outcome.",
		Type:        "counter_vec",
		Args:        []string{"type", "outcome"},
	}

	// MetricsLedgerPoints sums the absolute points moved per direction.
	MetricsLedgerPoints = &Metric{
		ID:          "ledgerPoints",
		Name:        "ledger_points_total",
		Description: "Points credited or debited.",
		Type:        "counter_vec",
		Args:        []string{"direction"},
	}

	MetricsWebhookEvents = &Metric{
		ID:          "webhookEvents",
		Name:        "stripe_webhook_events_total",
		Description: "Stripe webhook events by event type and outcome.",
		Type:        "counter_vec",
		Args:        []string{"event_type", "outcome"},
	}

	MetricsWebhookDuration = &Metric{
		ID:          "webhookDur",
		Name:        "stripe_webhook_dur_ms",
		Description: "Stripe webhook processing latency in milliseconds.",
		Type:        "histogram_vec",
		Args:        []string{"event_type"},
	}

	MetricsRolloverSweeps = &Metric{
		ID:          "rolloverSweeps",
		Name:        "rollover_sweeps_total",
		Description: "Rollover sweeps by outcome.",
		Type:        "counter_vec",
		Args:        []string{"outcome"},
	}

	MetricsRolloverSubscriptions = &Metric{
		ID:          "rolloverSubscriptions",
		Name:        "rollover_subscriptions_total",
		Description: "Subscriptions handled by the rollover sweep by result.",
		Type:        "counter_vec",
		Args:        []string{"result"},
	}

	MetricsRolloverPoints = &Metric{
		ID:          "rolloverPoints",
		Name:        "rollover_points_total",
		Description: "Points carried into rollover records.",
		Type:        "counter",
	}
)

// DomainMetrics is the MetricsList the API server registers.
var DomainMetrics = []*Metric{
	MetricsBusinessProcess,
	MetricsLedgerMutations,
	MetricsLedgerPoints,
	MetricsWebhookEvents,
	MetricsWebhookDuration,
	MetricsRolloverSweeps,
	MetricsRolloverSubscriptions,
	MetricsRolloverPoints,
}
