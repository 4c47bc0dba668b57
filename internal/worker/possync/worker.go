package possync

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/spf13/viper"
)

type syncer interface {
	SyncOrders(ctx context.Context) syncsvc.Result
}

// Worker pulls orders from the POS on a fixed interval, starting immediately.
type Worker struct {
	syncer   syncer
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new order sync worker.
func NewWorker(syncer syncer) *Worker {
	intervalSeconds := viper.GetInt("sync.interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 300
	}

	return &Worker{
		syncer:   syncer,
		interval: time.Duration(intervalSeconds) * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sync right away and then on every tick.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Sync worker started", "interval", w.interval)
	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sync worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Sync worker stopped")

			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) run(ctx context.Context) {
	res := w.syncer.SyncOrders(ctx)
	if !res.Success {
		slog.Error("Scheduled order sync failed", "error", res.Error)
	}
}
