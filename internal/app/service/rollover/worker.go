package rollover

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/config"
)

// Worker runs the sweep and the expiry pass on a fixed interval. It is only
// started when rollover.interval is positive; otherwise an external cron
// calls the HTTP trigger.
type Worker struct {
	scheduler *Scheduler
	interval  time.Duration
	log       *zap.SugaredLogger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(cfg *config.Config, scheduler *Scheduler, log *zap.SugaredLogger) *Worker {
	return &Worker{
		scheduler: scheduler,
		interval:  cfg.Rollover.Interval,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the loop. It is a no-op when the interval is not positive.
func (w *Worker) Start(ctx context.Context) {
	if w.interval <= 0 || w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.log.Infow("rollover worker started", "interval", w.interval)
	w.wg.Go(func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	})
}

// Stop cancels the loop and waits for the current tick to finish.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.cancel = nil
}

func (w *Worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("rollover worker panic", "panic", r)
		}
	}()
	now := w.now()
	if _, err := w.scheduler.Sweep(ctx, now); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			w.log.Infow("rollover sweep skipped, another run holds the lock")
		} else {
			w.log.Errorw("rollover sweep failed", "err", err)
		}
		return
	}
	if _, err := w.scheduler.ExpireRollovers(ctx, now); err != nil {
		w.log.Errorw("rollover expiry failed", "err", err)
	}
}

func registerWorker(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			w.Stop()
			return nil
		},
	})
}
