package webhook_log

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	wg  sync.WaitGroup
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a webhook event log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, entry *models.WebhookEventLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.TraceID == "" {
		entry.TraceID = logctx.TraceID(ctx)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.db.Create(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to save webhook event log", "event_id", entry.EventID, "status", entry.Status, "err", err)
		}
	}()
}

// Wait blocks until pending saves finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// ListByEvent returns the delivery stages recorded for eventID, oldest first.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]*models.WebhookEventLog, error) {
	var rows []*models.WebhookEventLog
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func register(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Wait()
			return nil
		},
	})
}

// Module exposes the webhook log service via Fx.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(register),
)
