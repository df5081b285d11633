package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointsHistoryType_Valid(t *testing.T) {
	require.True(t, PointsHistoryTypeDownload.Valid())
	require.True(t, PointsHistoryTypeAdminAdjustment.Valid())
	require.False(t, PointsHistoryType("GIFT").Valid())
	require.False(t, PointsHistoryType("").Valid())
}

func TestSubscriptionPlan_MaxRolloverPoints(t *testing.T) {
	tests := []struct {
		name string
		plan *SubscriptionPlan
		want int64
	}{
		{name: "nil plan", plan: nil, want: 0},
		{name: "half", plan: &SubscriptionPlan{Points: 100, RolloverLimit: 50}, want: 50},
		{name: "truncates", plan: &SubscriptionPlan{Points: 99, RolloverLimit: 50}, want: 49},
		{name: "thirds truncate", plan: &SubscriptionPlan{Points: 10, RolloverLimit: 33}, want: 3},
		{name: "zero limit", plan: &SubscriptionPlan{Points: 100, RolloverLimit: 0}, want: 0},
		{name: "over 100 clamps", plan: &SubscriptionPlan{Points: 100, RolloverLimit: 150}, want: 100},
		{name: "negative limit clamps", plan: &SubscriptionPlan{Points: 100, RolloverLimit: -5}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.plan.MaxRolloverPoints())
		})
	}
}

func TestSubscriptionStatusFromStripe(t *testing.T) {
	require.Equal(t, SubscriptionStatusActive, SubscriptionStatusFromStripe("active"))
	require.Equal(t, SubscriptionStatusCanceled, SubscriptionStatusFromStripe("trialing"))
	require.Equal(t, SubscriptionStatusCanceled, SubscriptionStatusFromStripe("past_due"))
	require.Equal(t, SubscriptionStatusCanceled, SubscriptionStatusFromStripe(""))
}
