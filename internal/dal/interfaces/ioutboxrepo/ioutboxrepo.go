package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/outbox"
)

// IOutboxRepository stores status-change events until the relay publishes them.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error
	FetchDue(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)
	MarkDelivered(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
}
