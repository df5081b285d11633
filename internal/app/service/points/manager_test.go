package points

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/types"
)

func TestAddPoints_NewUserCreatesBalanceAndHistory(t *testing.T) {
	m, gdb, pub := newTestManager(t)
	seedUser(t, gdb, "u1")

	bal, err := m.AddPoints(context.Background(), "u1", 100, types.PointsHistoryTypeSubscription, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.CurrentPoints)
	assert.Equal(t, int64(100), bal.TotalPurchased)
	assert.Equal(t, int64(0), bal.TotalUsed)

	rows := historyOf(t, gdb, "u1")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].Amount)
	assert.Equal(t, int64(100), rows[0].BalanceAfter)
	assert.Equal(t, types.PointsHistoryTypeSubscription, rows[0].Type)
	assert.Equal(t, "x", rows[0].Description)

	assert.Equal(t, []string{"points.subscription"}, pub.Keys())
}

func TestAddPoints_Validation(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u2")
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  string
		amount  int64
		typ     types.PointsHistoryType
		wantErr error
		wantMsg string
	}{
		{name: "zero amount", userID: "u2", amount: 0, typ: types.PointsHistoryTypeBonus, wantErr: apperr.ErrValidation, wantMsg: "amount must be non-zero"},
		{name: "unknown type", userID: "u2", amount: 10, typ: "GIFT", wantErr: apperr.ErrValidation},
		{name: "missing user id", userID: "", amount: 10, typ: types.PointsHistoryTypeBonus, wantErr: apperr.ErrValidation},
		{name: "unknown user", userID: "ghost", amount: 10, typ: types.PointsHistoryTypeBonus, wantErr: apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddPoints(ctx, tt.userID, tt.amount, tt.typ, "")
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}

	var count int64
	require.NoError(t, gdb.Model(&models.PointsHistory{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, gdb.Model(&models.PointsBalance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddPoints_NegativeAmountDebits(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	_, err := m.AddPoints(ctx, "u1", 100, types.PointsHistoryTypePurchase, "buy")
	require.NoError(t, err)

	bal, err := m.AddPoints(ctx, "u1", -30, types.PointsHistoryTypeAdminAdjustment, "correction")
	require.NoError(t, err)
	assert.Equal(t, int64(70), bal.CurrentPoints)
	assert.Equal(t, int64(100), bal.TotalPurchased)
	assert.Equal(t, int64(30), bal.TotalUsed)

	rows := historyOf(t, gdb, "u1")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(-30), rows[1].Amount)
	assert.Equal(t, int64(70), rows[1].BalanceAfter)
}

func TestDebit_InsufficientBalanceLeavesLedgerUntouched(t *testing.T) {
	m, gdb, pub := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	_, err := m.AddPoints(ctx, "u1", 10, types.PointsHistoryTypeBonus, "")
	require.NoError(t, err)

	_, err = m.Debit(ctx, &Mutation{UserID: "u1", Amount: 11, Type: types.PointsHistoryTypeDownload})
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance)

	bal, err := m.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.CurrentPoints)
	assert.Equal(t, int64(0), bal.TotalUsed)
	assert.Len(t, historyOf(t, gdb, "u1"), 1)
	assert.Len(t, pub.Keys(), 1)
}

func TestConsumeForDownload_IdempotentPerOrder(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	_, err := m.AddPoints(ctx, "u1", 50, types.PointsHistoryTypePurchasePack, "pack")
	require.NoError(t, err)

	change, err := m.ConsumeForDownload(ctx, "u1", "order-1", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(30), change.Balance.CurrentPoints)
	require.NotNil(t, change.History.OrderID)
	assert.Equal(t, "order-1", *change.History.OrderID)

	_, err = m.ConsumeForDownload(ctx, "u1", "order-1", 20)
	require.ErrorIs(t, err, apperr.ErrAlreadyApplied)

	_, err = m.ConsumeForDownload(ctx, "u1", " ", 20)
	require.ErrorIs(t, err, apperr.ErrValidation)

	bal, err := m.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal.CurrentPoints)
	assert.Len(t, historyOf(t, gdb, "u1"), 2)
}

func TestConsumeForDownload_FailedDebitDoesNotBurnOrderKey(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	_, err := m.ConsumeForDownload(ctx, "u1", "order-9", 20)
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance)

	_, err = m.AddPoints(ctx, "u1", 20, types.PointsHistoryTypeBonus, "")
	require.NoError(t, err)

	change, err := m.ConsumeForDownload(ctx, "u1", "order-9", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), change.Balance.CurrentPoints)
}

func TestRefundOrder(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	change, err := m.RefundOrder(ctx, "u1", "order-1", 25, "")
	require.NoError(t, err)
	assert.Equal(t, int64(25), change.Balance.CurrentPoints)
	assert.Equal(t, types.PointsHistoryTypeRefund, change.History.Type)
	assert.Equal(t, "Refund for order order-1", change.History.Description)

	_, err = m.RefundOrder(ctx, "u1", "order-1", 25, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)
}

func TestProcessSubscriptionRenewal(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")

	change, err := m.ProcessSubscriptionRenewal(context.Background(), "u1", "basic", 100)
	require.NoError(t, err)
	assert.Equal(t, types.PointsHistoryTypeSubscription, change.History.Type)
	assert.Equal(t, int64(100), change.Balance.CurrentPoints)
	assert.Contains(t, change.History.Description, "basic")
}

func TestApplyRollover_CarriesCappedAmountAndAllocates(t *testing.T) {
	m, gdb, pub := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m.now = tickingClock(now.Add(-time.Hour))

	_, err := m.AddPoints(ctx, "u1", 50, types.PointsHistoryTypeSubscription, "start")
	require.NoError(t, err)

	plan := &types.SubscriptionPlan{ID: "basic", Points: 100, RolloverLimit: 50}
	out, err := m.ApplyRollover(ctx, &RolloverInput{UserID: "u1", SubscriptionID: "sub-1", Plan: plan, PeriodEnd: now, Now: now})
	require.NoError(t, err)
	assert.Equal(t, int64(50), out.RolledOver)
	assert.Equal(t, int64(100), out.Allocated)
	require.NotNil(t, out.Record)
	assert.Equal(t, now.AddDate(0, 2, 0), out.Record.ExpiresAt)

	bal, err := m.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.CurrentPoints)
	require.NotNil(t, bal.LastRollover)
	assert.True(t, bal.LastRollover.Equal(now))

	rows := historyOf(t, gdb, "u1")
	require.Len(t, rows, 3)
	assert.Equal(t, types.PointsHistoryTypeRollover, rows[1].Type)
	assert.Equal(t, int64(-50), rows[1].Amount)
	assert.Equal(t, types.PointsHistoryTypeMonthlyAllocation, rows[2].Type)
	assert.Equal(t, int64(100), rows[2].Amount)

	var records []*models.RolloverRecord
	require.NoError(t, gdb.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, int64(50), records[0].Amount)
	assert.Equal(t, "sub-1", records[0].SubscriptionID)

	assert.Equal(t, []string{"points.subscription", "points.rollover", "points.monthly_allocation"}, pub.Keys())

	// the same period cannot roll over twice
	_, err = m.ApplyRollover(ctx, &RolloverInput{UserID: "u1", SubscriptionID: "sub-1", Plan: plan, PeriodEnd: now, Now: now})
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)
}

func TestApplyRollover_PastCutoffKeepsHistoryInWriteOrder(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()
	wall := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	m.now = tickingClock(wall)

	_, err := m.AddPoints(ctx, "u1", 50, types.PointsHistoryTypeSubscription, "start")
	require.NoError(t, err)

	cutoff := wall.Add(-24 * time.Hour)
	plan := &types.SubscriptionPlan{ID: "basic", Points: 100, RolloverLimit: 50}
	out, err := m.ApplyRollover(ctx, &RolloverInput{UserID: "u1", SubscriptionID: "sub-1", Plan: plan, PeriodEnd: cutoff, Now: cutoff})
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	assert.Equal(t, cutoff.AddDate(0, 2, 0), out.Record.ExpiresAt)

	history, err := m.GetHistory(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []types.PointsHistoryType{
		types.PointsHistoryTypeMonthlyAllocation,
		types.PointsHistoryTypeRollover,
		types.PointsHistoryTypeSubscription,
	}, []types.PointsHistoryType{history[0].Type, history[1].Type, history[2].Type})
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.After(history[i-1].CreatedAt))
	}
	assert.True(t, history[0].CreatedAt.After(wall))

	bal, err := m.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, bal.LastRollover)
	assert.True(t, bal.LastRollover.Equal(cutoff))
}

func TestApplyRollover_Bound(t *testing.T) {
	tests := []struct {
		name         string
		balance      int64
		plan         types.SubscriptionPlan
		wantRollover int64
	}{
		{name: "balance below cap", balance: 30, plan: types.SubscriptionPlan{ID: "p", Points: 100, RolloverLimit: 50}, wantRollover: 30},
		{name: "balance above cap", balance: 80, plan: types.SubscriptionPlan{ID: "p", Points: 100, RolloverLimit: 50}, wantRollover: 50},
		{name: "floor division", balance: 80, plan: types.SubscriptionPlan{ID: "p", Points: 99, RolloverLimit: 33}, wantRollover: 32},
		{name: "no rollover allowed", balance: 80, plan: types.SubscriptionPlan{ID: "p", Points: 100, RolloverLimit: 0}, wantRollover: 0},
		{name: "empty balance", balance: 0, plan: types.SubscriptionPlan{ID: "p", Points: 100, RolloverLimit: 100}, wantRollover: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, gdb, _ := newTestManager(t)
			seedUser(t, gdb, "u1")
			ctx := context.Background()
			if tt.balance > 0 {
				_, err := m.AddPoints(ctx, "u1", tt.balance, types.PointsHistoryTypeBonus, "")
				require.NoError(t, err)
			}
			plan := tt.plan
			out, err := m.ApplyRollover(ctx, &RolloverInput{UserID: "u1", SubscriptionID: "s", Plan: &plan})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRollover, out.RolledOver)
			assert.LessOrEqual(t, out.RolledOver, plan.MaxRolloverPoints())
			assert.LessOrEqual(t, out.RolledOver, tt.balance)
			assert.Equal(t, tt.wantRollover > 0, out.Record != nil)

			bal, err := m.GetBalance(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.balance-tt.wantRollover+plan.Points, bal.CurrentPoints)
		})
	}
}

func TestApplyRollover_Validation(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.ApplyRollover(context.Background(), &RolloverInput{UserID: "u1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedgerInvariants_RandomSequence(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	kinds := []types.PointsHistoryType{
		types.PointsHistoryTypeBonus,
		types.PointsHistoryTypeDownload,
		types.PointsHistoryTypeAdminAdjustment,
		types.PointsHistoryTypePurchase,
	}
	plan := &types.SubscriptionPlan{ID: "p", Points: 40, RolloverLimit: 25}
	var (
		applied       int
		lastPurchased int64
		lastUsed      int64
	)
	for i := 0; i < 60; i++ {
		if i%15 == 14 {
			out, err := m.ApplyRollover(ctx, &RolloverInput{UserID: "u1", SubscriptionID: "s", Plan: plan})
			require.NoError(t, err)
			applied += len(out.Changes)
		} else {
			amount := rng.Int63n(80) - 40
			if amount == 0 {
				amount = 1
			}
			_, err := m.AddPoints(ctx, "u1", amount, kinds[rng.Intn(len(kinds))], "")
			if err != nil {
				require.True(t, errors.Is(err, apperr.ErrInsufficientBalance), "unexpected error: %v", err)
			} else {
				applied++
			}
		}

		bal, err := m.GetBalance(ctx, "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bal.CurrentPoints, int64(0))
		assert.GreaterOrEqual(t, bal.TotalPurchased, lastPurchased)
		assert.GreaterOrEqual(t, bal.TotalUsed, lastUsed)
		lastPurchased, lastUsed = bal.TotalPurchased, bal.TotalUsed
	}

	rec, err := m.Reconcile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "difference %d", rec.Difference)
	assert.Equal(t, int64(applied), rec.HistoryRows)
}

func TestWithTx_RollsBackWithOuterTransaction(t *testing.T) {
	m, gdb, pub := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()
	boom := errors.New("boom")

	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		change, err := m.WithTx(tx).Credit(ctx, &Mutation{UserID: "u1", Amount: 10, Type: types.PointsHistoryTypeBonus})
		require.NoError(t, err)
		assert.Equal(t, int64(10), change.Balance.CurrentPoints)
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := m.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.CurrentPoints)
	assert.Empty(t, historyOf(t, gdb, "u1"))
	assert.Empty(t, pub.Keys(), "bound managers never publish on their own")
}

func TestWithTx_AnnounceAfterCommit(t *testing.T) {
	m, gdb, pub := newTestManager(t)
	seedUser(t, gdb, "u1")
	ctx := context.Background()

	var changes []*Change
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := m.WithTx(tx).RefundOrder(ctx, "u1", "o-1", 5, "")
		if err != nil {
			return err
		}
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, pub.Keys())

	m.Announce(ctx, changes...)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "points.refund", ev.RoutingKey())
	assert.Equal(t, "o-1", ev.OrderID)
	assert.Equal(t, int64(5), ev.BalanceAfter)
}
