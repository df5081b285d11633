package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/db/dbtest"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/config"
	types "github.com/fatflowers/pointsledger/pkg/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	cfg := &config.Config{SubscriptionPlans: []*types.SubscriptionPlan{{ID: "basic", Points: 100, RolloverLimit: 50}}}
	return NewService(cfg, gdb, zap.NewNop().Sugar()), gdb
}

func logsOf(t *testing.T, gdb *gorm.DB, subID string) []*models.SubscriptionLog {
	t.Helper()
	var rows []*models.SubscriptionLog
	require.NoError(t, gdb.Where("subscription_id = ?", subID).Order("created_at ASC").Order("id ASC").Find(&rows).Error)
	return rows
}

func TestUpsertFromCheckout(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	sub, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{
		UserID: "u1", PlanID: "basic", StripeSubscriptionID: "sub_1", StripeCustomerID: "cus_1", EventID: "evt_1", Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CurrentPeriodStart.Equal(now))
	assert.True(t, sub.CurrentPeriodEnd.Equal(now.AddDate(0, 1, 0)))

	// a second checkout for the same Stripe subscription updates in place
	later := now.Add(time.Hour)
	again, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u1", PlanID: "basic", StripeSubscriptionID: "sub_1", Now: later})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, "cus_1", again.StripeCustomerID)

	var count int64
	require.NoError(t, gdb.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	logs := logsOf(t, gdb, sub.ID)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].Before.Data())
	assert.Equal(t, "evt_1", logs[0].Extra["event_id"])
	require.NotNil(t, logs[1].Before.Data())
	assert.Equal(t, types.SubscriptionChangeReasonCheckout, logs[1].Reason)
}

func TestUpsertFromCheckout_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{PlanID: "basic", StripeSubscriptionID: "sub_1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u1", PlanID: "gold", StripeSubscriptionID: "sub_1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStripeLifecycle(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	created, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u1", PlanID: "basic", StripeSubscriptionID: "sub_1", Now: now})
	require.NoError(t, err)

	tests := []struct {
		name       string
		run        func() (*models.Subscription, error)
		wantStatus types.SubscriptionStatus
		check      func(t *testing.T, sub *models.Subscription)
	}{
		{
			name: "update to past_due maps to canceled",
			run: func() (*models.Subscription, error) {
				return svc.ApplyStripeUpdate(ctx, nil, "sub_1", &StripeUpdate{Status: "past_due", CancelAtPeriodEnd: true})
			},
			wantStatus: types.SubscriptionStatusCanceled,
			check: func(t *testing.T, sub *models.Subscription) {
				assert.True(t, sub.CancelAtPeriodEnd)
				assert.True(t, sub.CurrentPeriodEnd.Equal(created.CurrentPeriodEnd), "zero bounds keep the stored period")
			},
		},
		{
			name: "update to active with new period",
			run: func() (*models.Subscription, error) {
				return svc.ApplyStripeUpdate(ctx, nil, "sub_1", &StripeUpdate{
					Status:             "active",
					CurrentPeriodStart: now.AddDate(0, 1, 0),
					CurrentPeriodEnd:   now.AddDate(0, 2, 0),
				})
			},
			wantStatus: types.SubscriptionStatusActive,
			check: func(t *testing.T, sub *models.Subscription) {
				assert.False(t, sub.CancelAtPeriodEnd)
				assert.True(t, sub.CurrentPeriodEnd.Equal(now.AddDate(0, 2, 0)))
			},
		},
		{
			name: "payment failed",
			run: func() (*models.Subscription, error) {
				return svc.MarkPastDue(ctx, nil, "sub_1", "evt_f")
			},
			wantStatus: types.SubscriptionStatusPastDue,
		},
		{
			name: "renewal reactivates",
			run: func() (*models.Subscription, error) {
				current, err := svc.GetByStripeID(ctx, nil, "sub_1", false)
				if err != nil {
					return nil, err
				}
				return svc.RecordRenewal(ctx, nil, current, now.AddDate(0, 2, 0), now.AddDate(0, 3, 0), "evt_r")
			},
			wantStatus: types.SubscriptionStatusActive,
			check: func(t *testing.T, sub *models.Subscription) {
				assert.True(t, sub.CurrentPeriodEnd.Equal(now.AddDate(0, 3, 0)))
			},
		},
		{
			name: "deleted",
			run: func() (*models.Subscription, error) {
				return svc.Cancel(ctx, nil, "sub_1", now.AddDate(0, 2, 5), "evt_d")
			},
			wantStatus: types.SubscriptionStatusCanceled,
			check: func(t *testing.T, sub *models.Subscription) {
				require.NotNil(t, sub.CanceledAt)
				assert.True(t, sub.CanceledAt.Equal(now.AddDate(0, 2, 5)))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sub.Status)

			stored, err := svc.GetByStripeID(ctx, nil, "sub_1", false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			if tt.check != nil {
				tt.check(t, stored)
			}
		})
	}

	assert.Len(t, logsOf(t, gdb, created.ID), 1+len(tests))

	_, err = svc.MarkPastDue(ctx, nil, "sub_missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListDueAndAdvancePeriod(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	past, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u1", PlanID: "basic", StripeSubscriptionID: "sub_past", Now: now.AddDate(0, 0, -40)})
	require.NoError(t, err)
	_, err = svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u2", PlanID: "basic", StripeSubscriptionID: "sub_future", Now: now})
	require.NoError(t, err)
	canceled, err := svc.UpsertFromCheckout(ctx, nil, &CheckoutRequest{UserID: "u3", PlanID: "basic", StripeSubscriptionID: "sub_canceled", Now: now.AddDate(0, -2, 0)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, nil, canceled.StripeSubscriptionID, now, "")
	require.NoError(t, err)

	due, err := svc.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	locked, err := svc.LockByID(ctx, nil, past.ID)
	require.NoError(t, err)
	advanced, err := svc.AdvancePeriod(ctx, nil, locked, now)
	require.NoError(t, err)
	assert.True(t, advanced.CurrentPeriodEnd.Equal(now.AddDate(0, 1, 0)))

	due, err = svc.ListDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	active, err := svc.GetActiveByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, past.ID, active.ID)

	none, err := svc.GetActiveByUser(ctx, "u3")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.LockByID(ctx, nil, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
