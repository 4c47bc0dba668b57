package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
)

// StatusLogRepository implements the item status audit trail for PostgreSQL.
type StatusLogRepository struct {
	pgClient *postgres.Client
}

// NewStatusLogRepository creates a new status log repository.
func NewStatusLogRepository(pgClient *postgres.Client) *StatusLogRepository {
	return &StatusLogRepository{
		pgClient: pgClient,
	}
}

// SaveEntries appends entries using squirrel bulk insert. Redelivered entries are ignored.
func (r *StatusLogRepository) SaveEntries(
	ctx context.Context,
	entries []statuslog.Entry,
) error {
	if len(entries) == 0 {
		return nil
	}

	builder := sq.Insert("order_item_status_log").
		Columns(
			"order_item_id",
			"order_id",
			"from_status",
			"to_status",
			"actor",
			"changed_at",
		).
		Suffix("ON CONFLICT (order_item_id, to_status, changed_at) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	for _, e := range entries {
		builder = builder.Values(
			e.OrderItemID,
			e.OrderID,
			e.FromStatus.String(),
			e.ToStatus.String(),
			e.Actor,
			e.ChangedAt,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status log insert query: %w", err)
	}

	_, err = r.pgClient.Pool().Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to bulk insert status log entries: %w", err)
	}

	return nil
}
