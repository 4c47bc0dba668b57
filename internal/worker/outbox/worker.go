package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/outbox"
	"github.com/spf13/viper"
)

// publisher delivers a single outbox message to the broker.
type publisher interface {
	Publish(ctx context.Context, msg outbox.OutboxMessage) error
}

// Worker relays status-change events from the outbox table to RabbitMQ.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     publisher
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
}

// NewWorker creates the relay with intervals from rabbitmq.outbox.*.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start relays due events on every tick until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Status event relay started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Status event relay shutting down")

			return
		case <-w.stopCh:
			slog.Info("Status event relay stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff is retryInterval doubled per attempt: 60s, 120s, 240s... with the default interval.
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount))) * w.retryInterval
}

// processMessages publishes one batch of due events.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.FetchDue(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to fetch due status events", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Debug("Relaying status events", "count", len(messages))

	for _, msg := range messages {
		if err := w.publisher.Publish(ctx, msg); err != nil {
			w.reschedule(ctx, msg, err)

			continue
		}

		if err := w.outboxRepo.MarkDelivered(ctx, msg.ID); err != nil {
			// A redelivery is absorbed by the status log unique key.
			slog.Error("Failed to mark status event delivered", "outbox_id", msg.ID, "error", err)
		}
	}
}

func (w *Worker) reschedule(ctx context.Context, msg outbox.OutboxMessage, cause error) {
	attempts := msg.RetryCount + 1
	nextRetryAt := w.now().Add(w.backoff(attempts))

	if msg.MaxRetries > 0 && attempts >= msg.MaxRetries {
		slog.Error("Giving up on status event",
			"outbox_id", msg.ID,
			"queue", msg.QueueName,
			"attempts", attempts,
			"error", cause,
		)
	} else {
		slog.Warn("Failed to publish status event, will retry",
			"outbox_id", msg.ID,
			"retry_count", attempts,
			"next_retry", nextRetryAt,
			"error", cause,
		)
	}

	if err := w.outboxRepo.Reschedule(ctx, msg.ID, attempts, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to reschedule status event", "outbox_id", msg.ID, "error", err)
	}
}
