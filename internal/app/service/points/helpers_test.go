package points

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/db/dbtest"
	"github.com/fatflowers/pointsledger/pkg/config"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []*LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if ev, ok := event.(*LedgerEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newTestManager(t *testing.T) (*Manager, *gorm.DB, *recordingPublisher) {
	t.Helper()
	gdb := dbtest.New(t)
	pub := &recordingPublisher{}
	cfg := &config.Config{Rollover: config.RolloverConfig{GraceMonths: 2}}
	return NewManager(cfg, zap.NewNop().Sugar(), gdb, pub), gdb, pub
}

func seedUser(t *testing.T, gdb *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.User{ID: id, Email: id + "@example.com", Name: id}).Error)
}

func historyOf(t *testing.T, gdb *gorm.DB, userID string) []*models.PointsHistory {
	t.Helper()
	var rows []*models.PointsHistory
	require.NoError(t, gdb.Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC").Find(&rows).Error)
	return rows
}

// tickingClock starts at start and moves one second per reading.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at := next
		next = next.Add(time.Second)
		return at
	}
}
