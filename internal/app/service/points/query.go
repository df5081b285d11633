package points

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/types"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// historyScanFields are the columns admins may filter and sort by.
var historyScanFields = []string{"id", "user_id", "type", "amount", "balance_after", "order_id", "created_at"}

// GetBalance never writes; users without a row get a zero balance.
func (m *Manager) GetBalance(ctx context.Context, userID string) (*models.PointsBalance, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrValidation)
	}
	var bal models.PointsBalance
	err := m.db.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PointsBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, persistence("get balance", err)
	}
	return &bal, nil
}

// GetHistory returns a most-recent-first page of a user's history.
func (m *Manager) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.PointsHistory, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)
	offset = max(offset, 0)

	var rows []*models.PointsHistory
	if err := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, persistence("list history", err)
	}
	return rows, nil
}

// ActiveRollovers lists rollover records still inside their grace window.
func (m *Manager) ActiveRollovers(ctx context.Context, userID string, now time.Time) ([]*models.RolloverRecord, error) {
	var rows []*models.RolloverRecord
	if err := m.db.WithContext(ctx).
		Where("user_id = ? AND expired_at IS NULL AND expires_at > ?", userID, now).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, persistence("list rollovers", err)
	}
	return rows, nil
}

// ScanHistory implements paginated admin listing with filters.
func (m *Manager) ScanHistory(ctx context.Context, req *ScanHistoryRequest) (*ScanHistoryResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", apperr.ErrValidation)
	}
	if err := types.ValidateFilters(req.Filters, historyScanFields); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	if req.SortBy != "" && !slices.Contains(historyScanFields, req.SortBy) {
		return nil, fmt.Errorf("%w: cannot sort by %q", apperr.ErrValidation, req.SortBy)
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	req.Size = min(req.Size, maxHistoryLimit)
	if req.From < 0 {
		req.From = 0
	}

	base := m.db.WithContext(ctx).Model(&models.PointsHistory{})
	if len(req.Filters) > 0 {
		base = base.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, persistence("count history", err)
	}

	q := base.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"},
		{Column: clause.Column{Name: "id"}, Desc: req.SortOrder != "asc"},
	}})

	var rows []*models.PointsHistory
	if err := q.Find(&rows).Error; err != nil {
		return nil, persistence("scan history", err)
	}
	return &ScanHistoryResponse{Items: rows, Total: total}, nil
}

// Reconcile replays the history of userID against its stored balance.
func (m *Manager) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	bal, err := m.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	var agg struct {
		Total    int64
		RowCount int64
	}
	if err := m.db.WithContext(ctx).
		Model(&models.PointsHistory{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS row_count").
		Where("user_id = ?", userID).
		Scan(&agg).Error; err != nil {
		return nil, persistence("sum history", err)
	}
	return &Reconciliation{
		UserID:        userID,
		CurrentPoints: bal.CurrentPoints,
		HistorySum:    agg.Total,
		HistoryRows:   agg.RowCount,
		Difference:    bal.CurrentPoints - agg.Total,
		Consistent:    bal.CurrentPoints == agg.Total,
	}, nil
}
