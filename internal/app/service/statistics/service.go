package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/types"
)

type StatisticType string

const (
	// Ledger flow, grouped by day and history type
	StatisticTypeDailyPointsCredited StatisticType = "daily_points_credited"
	StatisticTypeDailyPointsDebited  StatisticType = "daily_points_debited"
	// Sum of current_points over all balances
	StatisticTypeTotalPointsOutstanding StatisticType = "total_points_outstanding"

	// Subscription related
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeTotalSubscriptionCount    StatisticType = "total_subscription_count"

	// Rollover related
	StatisticTypeDailyRolloverPoints  StatisticType = "daily_rollover_points"
	StatisticTypeActiveRolloverPoints StatisticType = "active_rollover_points"

	// Webhook deliveries that failed and were retried by Stripe
	StatisticTypeDailyWebhookFailures StatisticType = "daily_webhook_failures"
)

// Filter fields supported by certain statistic types
type PointsStatisticFilterType string

const (
	PointsStatisticFilterTypeUserID    PointsStatisticFilterType = "user_id"
	PointsStatisticFilterTypeType      PointsStatisticFilterType = "type"
	PointsStatisticFilterTypeCreatedAt PointsStatisticFilterType = "created_at"
)

var filterTypes = []PointsStatisticFilterType{
	PointsStatisticFilterTypeUserID,
	PointsStatisticFilterTypeType,
	PointsStatisticFilterTypeCreatedAt,
}

var validFilters = map[PointsStatisticFilterType][]StatisticType{
	PointsStatisticFilterTypeUserID:    {StatisticTypeDailyPointsCredited, StatisticTypeDailyPointsDebited, StatisticTypeTotalPointsOutstanding, StatisticTypeDailyRolloverPoints, StatisticTypeActiveRolloverPoints},
	PointsStatisticFilterTypeType:      {StatisticTypeDailyPointsCredited, StatisticTypeDailyPointsDebited},
	PointsStatisticFilterTypeCreatedAt: {StatisticTypeDailyPointsCredited, StatisticTypeDailyPointsDebited, StatisticTypeDailyNewSubscriptionCount, StatisticTypeDailyRolloverPoints, StatisticTypeDailyWebhookFailures},
}

type PointsStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type PointsStatisticRequest struct {
	Filters   []*types.CommonFilter      `json:"filters"`
	DataItems []*PointsStatisticDataItem `json:"data_items"`
}

// GetFilters keeps only the filters that apply to statisticType.
func (f *PointsStatisticRequest) GetFilters(statisticType StatisticType) types.FiltersAnd {
	if f == nil {
		return nil
	}
	var result types.FiltersAnd
	for _, filter := range f.Filters {
		if lo.Contains(validFilters[PointsStatisticFilterType(filter.Field)], statisticType) {
			result = append(result, filter)
		}
	}
	return result
}

func (f *PointsStatisticRequest) where(statisticType StatisticType) clause.Where {
	return clause.Where{Exprs: []clause.Expression{f.GetFilters(statisticType)}}
}

type PointsStatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type PointsStatisticResponse struct {
	DataItems map[StatisticType][]PointsStatisticResponseDataItem `json:"data_items"`
}

// Service provides statistics operations
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// dayExpr renders column as a YYYY-MM-DD string in the current dialect.
func (s *Service) dayExpr(column string) string {
	switch s.db.Dialector.Name() {
	case "mysql":
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-%%d')", column)
	case "sqlite":
		return fmt.Sprintf("substr(%s, 1, 10)", column)
	default:
		return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
	}
}

func (s *Service) getDailyPoints(ctx context.Context, request *PointsStatisticRequest, st StatisticType) ([]PointsStatisticResponseDataItem, error) {
	day := s.dayExpr("created_at")
	value, cond := "SUM(amount)", "amount > 0"
	if st == StatisticTypeDailyPointsDebited {
		value, cond = "SUM(-amount)", "amount < 0"
	}
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.PointsHistory{}).
		Select(fmt.Sprintf("%s AS date, type AS label, %s AS value", day, value)).
		Where(cond).
		Where(request.where(st)).
		Group(day).
		Group("type").
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "date"}, Desc: true},
			{Column: clause.Column{Name: "label"}},
		}})
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalPointsOutstanding(ctx context.Context, request *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.PointsBalance{}).
		Select("COALESCE(SUM(current_points), 0) AS value").
		Where(request.where(StatisticTypeTotalPointsOutstanding))
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	day := s.dayExpr("created_at")
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Select(fmt.Sprintf("%s AS date, COUNT(DISTINCT user_id) AS value", day)).
		Where(request.where(StatisticTypeDailyNewSubscriptionCount)).
		Group(day).
		Order("date DESC")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalSubscriptionCount(ctx context.Context, _ *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("status AS label, COUNT(*) AS value").
		Group("status").
		Order("label")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRolloverPoints(ctx context.Context, request *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	day := s.dayExpr("created_at")
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.RolloverRecord{}).
		Select(fmt.Sprintf("%s AS date, SUM(amount) AS value", day)).
		Where(request.where(StatisticTypeDailyRolloverPoints)).
		Group(day).
		Order("date DESC")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveRolloverPoints(ctx context.Context, request *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.RolloverRecord{}).
		Select("COALESCE(SUM(amount), 0) AS value").
		Where("expired_at IS NULL").
		Where(request.where(StatisticTypeActiveRolloverPoints))
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyWebhookFailures(ctx context.Context, request *PointsStatisticRequest) ([]PointsStatisticResponseDataItem, error) {
	day := s.dayExpr("created_at")
	var results []PointsStatisticResponseDataItem
	q := s.db.WithContext(ctx).Model(&models.WebhookEventLog{}).
		Select(fmt.Sprintf("%s AS date, event_type AS label, COUNT(*) AS value", day)).
		Where("status = ?", models.WebhookEventLogStatusHandleFailed).
		Where(request.where(StatisticTypeDailyWebhookFailures)).
		Group(day).
		Group("event_type").
		Order("date DESC")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getPointsStatistic(ctx context.Context, request *PointsStatisticRequest, dataItem *PointsStatisticDataItem) ([]PointsStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPointsCredited, StatisticTypeDailyPointsDebited:
		return s.getDailyPoints(ctx, request, dataItem.ID)
	case StatisticTypeTotalPointsOutstanding:
		return s.getTotalPointsOutstanding(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeTotalSubscriptionCount:
		return s.getTotalSubscriptionCount(ctx, request)
	case StatisticTypeDailyRolloverPoints:
		return s.getDailyRolloverPoints(ctx, request)
	case StatisticTypeActiveRolloverPoints:
		return s.getActiveRolloverPoints(ctx, request)
	case StatisticTypeDailyWebhookFailures:
		return s.getDailyWebhookFailures(ctx, request)
	default:
		return nil, fmt.Errorf("%w: invalid data item id: %s", apperr.ErrValidation, dataItem.ID)
	}
}

// GetPointsStatistic computes every requested data item concurrently. A data
// item that a filter cannot apply to comes back empty instead of unfiltered.
func (s *Service) GetPointsStatistic(ctx context.Context, request *PointsStatisticRequest) (*PointsStatisticResponse, error) {
	if request == nil || len(request.DataItems) == 0 {
		return nil, fmt.Errorf("%w: data_items is required", apperr.ErrValidation)
	}
	fields := lo.Map(filterTypes, func(ft PointsStatisticFilterType, _ int) string { return string(ft) })
	if err := types.ValidateFilters(request.Filters, fields); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	var mu sync.Mutex
	results := make(map[StatisticType][]PointsStatisticResponseDataItem, len(request.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range request.DataItems {
		if item == nil {
			continue
		}
		g.Go(func() error {
			for _, filter := range request.Filters {
				ft := PointsStatisticFilterType(filter.Field)
				if !lo.Contains(validFilters[ft], item.ID) {
					mu.Lock()
					results[item.ID] = nil
					mu.Unlock()
					return nil
				}
			}
			res, err := s.getPointsStatistic(gctx, request, item)
			if err != nil {
				return fmt.Errorf("failed to compute %s: %w", item.ID, err)
			}
			mu.Lock()
			results[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &PointsStatisticResponse{DataItems: results}, nil
}
