package istatuslogrepo

import (
	"context"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
)

// IStatusLogRepository is interface for the item status audit trail.
type IStatusLogRepository interface {
	SaveEntries(ctx context.Context, entries []statuslog.Entry) error
}
