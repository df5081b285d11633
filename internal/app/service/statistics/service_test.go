package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/db/dbtest"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/types"
)

func seed(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	day1 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	history := []*models.PointsHistory{
		{ID: "h1", UserID: "u1", Type: types.PointsHistoryTypePurchase, Amount: 100, BalanceAfter: 100, CreatedAt: day1},
		{ID: "h2", UserID: "u1", Type: types.PointsHistoryTypeDownload, Amount: -30, BalanceAfter: 70, CreatedAt: day1},
		{ID: "h3", UserID: "u2", Type: types.PointsHistoryTypePurchase, Amount: 50, BalanceAfter: 50, CreatedAt: day2},
		{ID: "h4", UserID: "u2", Type: types.PointsHistoryTypeBonus, Amount: 5, BalanceAfter: 55, CreatedAt: day2},
	}
	require.NoError(t, gdb.Create(history).Error)
	require.NoError(t, gdb.Create([]*models.PointsBalance{
		{UserID: "u1", CurrentPoints: 70, TotalPurchased: 100, TotalUsed: 30},
		{UserID: "u2", CurrentPoints: 55, TotalPurchased: 55},
	}).Error)
	require.NoError(t, gdb.Create([]*models.Subscription{
		{ID: "s1", UserID: "u1", PlanID: "basic", StripeSubscriptionID: "sub_1", Status: types.SubscriptionStatusActive, CurrentPeriodStart: day1, CurrentPeriodEnd: day1.AddDate(0, 1, 0), CreatedAt: day1},
		{ID: "s2", UserID: "u2", PlanID: "basic", StripeSubscriptionID: "sub_2", Status: types.SubscriptionStatusCanceled, CurrentPeriodStart: day2, CurrentPeriodEnd: day2.AddDate(0, 1, 0), CreatedAt: day2},
	}).Error)
	require.NoError(t, gdb.Create([]*models.RolloverRecord{
		{ID: "r1", UserID: "u1", SubscriptionID: "s1", Amount: 20, ExpiresAt: day1.AddDate(0, 2, 0), CreatedAt: day1},
	}).Error)
}

func TestGetPointsStatistic(t *testing.T) {
	gdb := dbtest.New(t)
	seed(t, gdb)
	svc := New(gdb)

	resp, err := svc.GetPointsStatistic(context.Background(), &PointsStatisticRequest{
		DataItems: []*PointsStatisticDataItem{
			{ID: StatisticTypeDailyPointsCredited},
			{ID: StatisticTypeDailyPointsDebited},
			{ID: StatisticTypeTotalPointsOutstanding},
			{ID: StatisticTypeTotalSubscriptionCount},
			{ID: StatisticTypeDailyRolloverPoints},
			{ID: StatisticTypeActiveRolloverPoints},
			{ID: StatisticTypeDailyNewSubscriptionCount},
		},
	})
	require.NoError(t, err)

	credited := resp.DataItems[StatisticTypeDailyPointsCredited]
	require.Len(t, credited, 3)
	assert.Equal(t, PointsStatisticResponseDataItem{Date: "2026-04-02", Label: "BONUS", Value: 5}, credited[0])
	assert.Equal(t, PointsStatisticResponseDataItem{Date: "2026-04-02", Label: "PURCHASE", Value: 50}, credited[1])
	assert.Equal(t, PointsStatisticResponseDataItem{Date: "2026-04-01", Label: "PURCHASE", Value: 100}, credited[2])

	debited := resp.DataItems[StatisticTypeDailyPointsDebited]
	require.Len(t, debited, 1)
	assert.Equal(t, int64(30), debited[0].Value)

	require.Len(t, resp.DataItems[StatisticTypeTotalPointsOutstanding], 1)
	assert.Equal(t, int64(125), resp.DataItems[StatisticTypeTotalPointsOutstanding][0].Value)

	subs := resp.DataItems[StatisticTypeTotalSubscriptionCount]
	require.Len(t, subs, 2)
	assert.Equal(t, "ACTIVE", subs[0].Label)

	assert.Equal(t, int64(20), resp.DataItems[StatisticTypeActiveRolloverPoints][0].Value)
	assert.Len(t, resp.DataItems[StatisticTypeDailyRolloverPoints], 1)
	assert.Len(t, resp.DataItems[StatisticTypeDailyNewSubscriptionCount], 2)
}

func TestGetPointsStatistic_Filters(t *testing.T) {
	gdb := dbtest.New(t)
	seed(t, gdb)
	svc := New(gdb)

	resp, err := svc.GetPointsStatistic(context.Background(), &PointsStatisticRequest{
		Filters: []*types.CommonFilter{{Field: "type", Operator: types.CommonFilterOperatorEq, Values: []any{"PURCHASE"}}},
		DataItems: []*PointsStatisticDataItem{
			{ID: StatisticTypeDailyPointsCredited},
			{ID: StatisticTypeTotalSubscriptionCount},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.DataItems[StatisticTypeDailyPointsCredited], 2)

	subs, ok := resp.DataItems[StatisticTypeTotalSubscriptionCount]
	assert.True(t, ok)
	assert.Nil(t, subs, "a filter that cannot apply yields an empty item")
}

func TestGetPointsStatistic_Validation(t *testing.T) {
	svc := New(dbtest.New(t))
	ctx := context.Background()

	_, err := svc.GetPointsStatistic(ctx, &PointsStatisticRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.GetPointsStatistic(ctx, &PointsStatisticRequest{
		Filters:   []*types.CommonFilter{{Field: "description", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
		DataItems: []*PointsStatisticDataItem{{ID: StatisticTypeDailyPointsCredited}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.GetPointsStatistic(ctx, &PointsStatisticRequest{DataItems: []*PointsStatisticDataItem{{ID: "nope"}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
