package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/jackc/pgx/v5"
)

// TimingDal represents order timing data access layer model.
type TimingDal struct {
	OrderId           string     `db:"order_id"`
	TableName         string     `db:"table_name"`
	DeliveryService   string     `db:"delivery_service"`
	CreatedAt         time.Time  `db:"created_at"`
	FirstItemStarted  *time.Time `db:"first_item_started"`
	AllItemsCompleted *time.Time `db:"all_items_completed"`
	PassedAt          *time.Time `db:"passed_at"`
	TotalItems        int        `db:"total_items"`
	WaitingTime       *int64     `db:"waiting_time"`
	PreparationTime   *int64     `db:"preparation_time"`
	TotalTime         *int64     `db:"total_time"`
	Status            string     `db:"status"`
	WarningReason     string     `db:"warning_reason"`
	EscalatedAt       *time.Time `db:"escalated_at"`
}

// ToModel converts TimingDal to service layer OrderTiming model.
func (t *TimingDal) ToModel() (*timing.OrderTiming, error) {
	status, err := timing.ParseStatus(t.Status)
	if err != nil {
		return nil, err
	}

	return &timing.OrderTiming{
		OrderID:           t.OrderId,
		TableName:         t.TableName,
		DeliveryService:   t.DeliveryService,
		CreatedAt:         t.CreatedAt,
		FirstItemStarted:  t.FirstItemStarted,
		AllItemsCompleted: t.AllItemsCompleted,
		PassedAt:          t.PassedAt,
		TotalItems:        t.TotalItems,
		WaitingTime:       t.WaitingTime,
		PreparationTime:   t.PreparationTime,
		TotalTime:         t.TotalTime,
		Status:            status,
		WarningReason:     t.WarningReason,
		EscalatedAt:       t.EscalatedAt,
	}, nil
}

// TimingDalFromModel converts service layer OrderTiming model to TimingDal.
func TimingDalFromModel(t *timing.OrderTiming) *TimingDal {
	return &TimingDal{
		OrderId:           t.OrderID,
		TableName:         t.TableName,
		DeliveryService:   t.DeliveryService,
		CreatedAt:         t.CreatedAt,
		FirstItemStarted:  t.FirstItemStarted,
		AllItemsCompleted: t.AllItemsCompleted,
		PassedAt:          t.PassedAt,
		TotalItems:        t.TotalItems,
		WaitingTime:       t.WaitingTime,
		PreparationTime:   t.PreparationTime,
		TotalTime:         t.TotalTime,
		Status:            t.Status.String(),
		WarningReason:     t.WarningReason,
		EscalatedAt:       t.EscalatedAt,
	}
}

var timingColumns = []string{
	"order_id",
	"table_name",
	"delivery_service",
	"created_at",
	"first_item_started",
	"all_items_completed",
	"passed_at",
	"total_items",
	"waiting_time",
	"preparation_time",
	"total_time",
	"status",
	"warning_reason",
	"escalated_at",
}

func (t *TimingDal) scanTargets() []any {
	return []any{
		&t.OrderId,
		&t.TableName,
		&t.DeliveryService,
		&t.CreatedAt,
		&t.FirstItemStarted,
		&t.AllItemsCompleted,
		&t.PassedAt,
		&t.TotalItems,
		&t.WaitingTime,
		&t.PreparationTime,
		&t.TotalTime,
		&t.Status,
		&t.WarningReason,
		&t.EscalatedAt,
	}
}

// PostgresTimingRepository represents a Postgres order timing repository.
type PostgresTimingRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresTimingRepository creates a new Postgres order timing repository.
func NewPostgresTimingRepository(conn postgres.Conn) *PostgresTimingRepository {
	return &PostgresTimingRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Get retrieves the timing row of an order.
func (r *PostgresTimingRepository) Get(ctx context.Context, orderID string) (*timing.OrderTiming, error) {
	sql, args, err := r.sb.
		Select(timingColumns...).
		From("order_timing").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var dal TimingDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timing.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get order timing %s: %w", orderID, err)
	}

	return dal.ToModel()
}

// Insert creates the timing row unless one already exists for the order.
func (r *PostgresTimingRepository) Insert(ctx context.Context, t timing.OrderTiming) error {
	dal := TimingDalFromModel(&t)

	sql, args, err := r.sb.
		Insert("order_timing").
		Columns(timingColumns...).
		Values(
			dal.OrderId,
			dal.TableName,
			dal.DeliveryService,
			dal.CreatedAt,
			dal.FirstItemStarted,
			dal.AllItemsCompleted,
			dal.PassedAt,
			dal.TotalItems,
			dal.WaitingTime,
			dal.PreparationTime,
			dal.TotalTime,
			dal.Status,
			dal.WarningReason,
			dal.EscalatedAt,
		).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert order timing %s: %w", t.OrderID, err)
	}

	return nil
}

// Update overwrites the mutable columns of a timing row.
func (r *PostgresTimingRepository) Update(ctx context.Context, t timing.OrderTiming) error {
	dal := TimingDalFromModel(&t)

	sql, args, err := r.sb.
		Update("order_timing").
		Set("first_item_started", dal.FirstItemStarted).
		Set("all_items_completed", dal.AllItemsCompleted).
		Set("passed_at", dal.PassedAt).
		Set("total_items", dal.TotalItems).
		Set("waiting_time", dal.WaitingTime).
		Set("preparation_time", dal.PreparationTime).
		Set("total_time", dal.TotalTime).
		Set("status", dal.Status).
		Set("warning_reason", dal.WarningReason).
		Set("escalated_at", dal.EscalatedAt).
		Where(sq.Eq{"order_id": dal.OrderId}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update order timing %s: %w", t.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return timing.ErrNotFound
	}

	return nil
}

// ListByOrderIDs returns the timing rows of the given orders.
func (r *PostgresTimingRepository) ListByOrderIDs(
	ctx context.Context,
	orderIDs []string,
) ([]timing.OrderTiming, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	return r.list(ctx, r.sb.
		Select(timingColumns...).
		From("order_timing").
		Where(sq.Eq{"order_id": orderIDs}))
}

// ListByStatus returns the timing rows in status, oldest order first.
func (r *PostgresTimingRepository) ListByStatus(
	ctx context.Context,
	status timing.Status,
) ([]timing.OrderTiming, error) {
	return r.list(ctx, r.sb.
		Select(timingColumns...).
		From("order_timing").
		Where(sq.Eq{"status": status.String()}).
		OrderBy("created_at ASC"))
}

func (r *PostgresTimingRepository) list(ctx context.Context, query sq.SelectBuilder) ([]timing.OrderTiming, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order timings: %w", err)
	}
	defer rows.Close()

	var result []timing.OrderTiming
	for rows.Next() {
		var dal TimingDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order timing: %w", err)
		}

		t, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order timing dal to model: %w", err)
		}
		result = append(result, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// EscalateOverdue moves unfinished active timings created before cutoff to warning
// and stamps them with at. Rows escalated before are left alone.
func (r *PostgresTimingRepository) EscalateOverdue(
	ctx context.Context,
	cutoff time.Time,
	at time.Time,
	reason string,
) (int64, error) {
	sql, args, err := r.sb.
		Update("order_timing").
		Set("status", timing.StatusWarning.String()).
		Set("warning_reason", reason).
		Set("escalated_at", at).
		Where(sq.Eq{"status": timing.StatusActive.String()}).
		Where(sq.Eq{"all_items_completed": nil}).
		Where(sq.Eq{"escalated_at": nil}).
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to escalate overdue timings: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Stats aggregates the timings of orders created in [from, to).
func (r *PostgresTimingRepository) Stats(ctx context.Context, from, to time.Time) (*timing.Stats, error) {
	sql, args, err := r.sb.
		Select(
			"count(*)",
			"coalesce(avg(preparation_time), 0)::float8",
			"count(*) FILTER (WHERE total_time < 900)",
			"count(*) FILTER (WHERE total_time > 1800)",
			"(SELECT count(*) FROM order_timing WHERE status = 'warning')",
		).
		From("order_timing").
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var stats timing.Stats
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&stats.TotalOrders,
		&stats.AvgPreparationTime,
		&stats.OrdersUnder15Min,
		&stats.OrdersOver30Min,
		&stats.WarningCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query timing stats: %w", err)
	}

	return &stats, nil
}
