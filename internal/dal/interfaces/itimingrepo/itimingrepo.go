package itimingrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
)

// ITimingRepository is an interface for order timing postgres repository.
type ITimingRepository interface {
	// Get returns timing.ErrNotFound when the order has no timing row.
	Get(ctx context.Context, orderID string) (*timing.OrderTiming, error)
	// Insert does nothing when a row for the order already exists.
	Insert(ctx context.Context, t timing.OrderTiming) error
	Update(ctx context.Context, t timing.OrderTiming) error
	ListByOrderIDs(ctx context.Context, orderIDs []string) ([]timing.OrderTiming, error)
	ListByStatus(ctx context.Context, status timing.Status) ([]timing.OrderTiming, error)
	// EscalateOverdue moves unfinished active rows created before cutoff to warning,
	// once per row: escalated rows keep their stamp and are skipped afterwards.
	EscalateOverdue(ctx context.Context, cutoff, at time.Time, reason string) (int64, error)
	// Stats aggregates timings created in [from, to); WarningCount is global.
	Stats(ctx context.Context, from, to time.Time) (*timing.Stats, error)
}
