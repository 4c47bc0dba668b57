package escalation

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type escalator interface {
	EscalateOverdue(ctx context.Context) (int64, error)
}

type notifier interface {
	NotifyWarnings(count int64)
}

// Worker moves overdue orders into the warning state on a fixed interval.
type Worker struct {
	escalator escalator
	notifier  notifier
	interval  time.Duration
	stopCh    chan struct{}
}

// NewWorker creates a new escalation worker. notifier may be nil.
func NewWorker(escalator escalator, notifier notifier) *Worker {
	intervalSeconds := viper.GetInt("timing.escalation_interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 60
	}

	return &Worker{
		escalator: escalator,
		notifier:  notifier,
		interval:  time.Duration(intervalSeconds) * time.Second,
		stopCh:    make(chan struct{}),
	}
}

// Start begins escalating on every tick.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Escalation worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Escalation worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Escalation worker stopped")

			return
		case <-ticker.C:
			w.escalate(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) escalate(ctx context.Context) {
	n, err := w.escalator.EscalateOverdue(ctx)
	if err != nil {
		slog.Error("Failed to escalate overdue orders", "error", err)

		return
	}

	if n > 0 && w.notifier != nil {
		w.notifier.NotifyWarnings(n)
	}
}
