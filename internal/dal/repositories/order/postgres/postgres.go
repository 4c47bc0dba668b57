package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/jackc/pgx/v5"
)

// OrderDal represents order data access layer model
type OrderDal struct {
	Id              string    `db:"id"`
	Created         time.Time `db:"created"`
	Note            string    `db:"note"`
	TableName       string    `db:"table_name"`
	DeliveryService string    `db:"delivery_service"`
	DeliveryNote    string    `db:"delivery_note"`
	LastUpdated     time.Time `db:"last_updated"`
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() *order.Order {
	return &order.Order{
		ID:              o.Id,
		Created:         o.Created,
		Note:            o.Note,
		TableName:       o.TableName,
		DeliveryService: order.DeliveryService(o.DeliveryService),
		DeliveryNote:    o.DeliveryNote,
		LastUpdated:     o.LastUpdated,
	}
}

// OrderDalFromModel converts service layer Order model to OrderDal
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:              o.ID,
		Created:         o.Created,
		Note:            o.Note,
		TableName:       o.TableName,
		DeliveryService: o.DeliveryService.String(),
		DeliveryNote:    o.DeliveryNote,
		LastUpdated:     o.LastUpdated,
	}
}

// Columns lists the order columns in scan order.
var Columns = []string{
	"id",
	"created",
	"note",
	"table_name",
	"delivery_service",
	"delivery_note",
	"last_updated",
}

// ScanTargets returns the scan destinations matching Columns.
func (o *OrderDal) ScanTargets() []any {
	return []any{
		&o.Id,
		&o.Created,
		&o.Note,
		&o.TableName,
		&o.DeliveryService,
		&o.DeliveryNote,
		&o.LastUpdated,
	}
}

// last_updated only moves when a synced column actually changes.
const upsertSuffix = `
	ON CONFLICT (id) DO UPDATE SET
		note = EXCLUDED.note,
		table_name = EXCLUDED.table_name,
		delivery_service = EXCLUDED.delivery_service,
		delivery_note = EXCLUDED.delivery_note,
		last_updated = CASE
			WHEN (orders.note, orders.table_name, orders.delivery_service, orders.delivery_note)
				IS DISTINCT FROM
				(EXCLUDED.note, EXCLUDED.table_name, EXCLUDED.delivery_service, EXCLUDED.delivery_note)
			THEN EXCLUDED.last_updated
			ELSE orders.last_updated
		END`

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.Conn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts the order or refreshes its synced columns.
func (r *PostgresOrderRepository) Upsert(ctx context.Context, o order.Order) error {
	dal := OrderDalFromModel(&o)

	sql, args, err := r.sb.
		Insert("orders").
		Columns(Columns...).
		Values(dal.Values()...).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
	}

	return nil
}

// Values returns the column values matching Columns.
func (o *OrderDal) Values() []any {
	return []any{
		o.Id,
		o.Created,
		o.Note,
		o.TableName,
		o.DeliveryService,
		o.DeliveryNote,
		o.LastUpdated,
	}
}

// Get retrieves a single order.
func (r *PostgresOrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	sql, args, err := r.sb.
		Select(Columns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.ScanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	return dal.ToModel(), nil
}
