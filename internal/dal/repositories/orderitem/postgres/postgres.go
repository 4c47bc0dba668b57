package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	orderrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/order/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/google/uuid"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id            string    `db:"id"`
	OrderId       string    `db:"order_id"`
	ProductId     *string   `db:"product_id"`
	Name          string    `db:"name"`
	Quantity      int       `db:"quantity"`
	KitchenStatus string    `db:"kitchen_status"`
	Note          string    `db:"note"`
	Shown         bool      `db:"shown"`
	LastUpdated   time.Time `db:"last_updated"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() (*orderitem.OrderItem, error) {
	status, err := kitchenstatus.Parse(oi.KitchenStatus)
	if err != nil {
		return nil, err
	}

	return &orderitem.OrderItem{
		ID:            oi.Id,
		OrderID:       oi.OrderId,
		ProductID:     oi.ProductId,
		Name:          oi.Name,
		Quantity:      oi.Quantity,
		KitchenStatus: status,
		Note:          oi.Note,
		Shown:         oi.Shown,
		LastUpdated:   oi.LastUpdated,
	}, nil
}

// OrderItemDalFromModel converts service layer OrderItem model to OrderItemDal.
func OrderItemDalFromModel(oi *orderitem.OrderItem) *OrderItemDal {
	return &OrderItemDal{
		Id:            oi.ID,
		OrderId:       oi.OrderID,
		ProductId:     oi.ProductID,
		Name:          oi.Name,
		Quantity:      oi.Quantity,
		KitchenStatus: oi.KitchenStatus.String(),
		Note:          oi.Note,
		Shown:         oi.Shown,
		LastUpdated:   oi.LastUpdated,
	}
}

var itemColumns = []string{
	"id",
	"order_id",
	"product_id",
	"name",
	"quantity",
	"kitchen_status",
	"note",
	"shown",
	"last_updated",
}

func (oi *OrderItemDal) scanTargets() []any {
	return []any{
		&oi.Id,
		&oi.OrderId,
		&oi.ProductId,
		&oi.Name,
		&oi.Quantity,
		&oi.KitchenStatus,
		&oi.Note,
		&oi.Shown,
		&oi.LastUpdated,
	}
}

// keptStatus keeps a locally completed or passed status over whatever the sync brings.
const keptStatus = `CASE
			WHEN order_items.kitchen_status IN ('completed', 'passed') THEN order_items.kitchen_status
			ELSE EXCLUDED.kitchen_status
		END`

// shown is local bookkeeping and is left alone on conflict.
const upsertSuffix = `
	ON CONFLICT (id) DO UPDATE SET
		order_id = EXCLUDED.order_id,
		product_id = EXCLUDED.product_id,
		name = EXCLUDED.name,
		quantity = EXCLUDED.quantity,
		kitchen_status = ` + keptStatus + `,
		note = EXCLUDED.note,
		last_updated = CASE
			WHEN (order_items.order_id, order_items.product_id, order_items.name, order_items.quantity,
				order_items.kitchen_status, order_items.note)
				IS DISTINCT FROM
				(EXCLUDED.order_id, EXCLUDED.product_id, EXCLUDED.name, EXCLUDED.quantity,
				` + keptStatus + `, EXCLUDED.note)
			THEN EXCLUDED.last_updated
			ELSE order_items.last_updated
		END`

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.Conn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// StatusesByIDs returns the stored status of every existing item among ids and
// locks those rows until the surrounding transaction ends.
func (r *PostgresOrderItemRepository) StatusesByIDs(
	ctx context.Context,
	ids []string,
) (map[string]kitchenstatus.Status, error) {
	result := make(map[string]kitchenstatus.Status, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	sql, args, err := r.sb.
		Select("id", "kitchen_status").
		From("order_items").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order item statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan order item status: %w", err)
		}
		status, err := kitchenstatus.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("order item %s: %w", id, err)
		}
		result[id] = status
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Upsert inserts items or refreshes their synced columns. Ids must be unique within the batch.
func (r *PostgresOrderItemRepository) Upsert(ctx context.Context, items []orderitem.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := r.sb.
		Insert("order_items").
		Columns(itemColumns...).
		Suffix(upsertSuffix)

	for i := range items {
		dal := OrderItemDalFromModel(&items[i])
		builder = builder.Values(
			dal.Id,
			dal.OrderId,
			dal.ProductId,
			dal.Name,
			dal.Quantity,
			dal.KitchenStatus,
			dal.Note,
			dal.Shown,
			dal.LastUpdated,
		)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert order items: %w", err)
	}

	return nil
}

// ReplaceSubitems deletes every sub-item of the item and inserts the given ones.
func (r *PostgresOrderItemRepository) ReplaceSubitems(
	ctx context.Context,
	itemID string,
	subitems []orderitem.Subitem,
) error {
	sql, args, err := r.sb.
		Delete("order_item_subitems").
		Where(sq.Eq{"order_item_id": itemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete subitems of %s: %w", itemID, err)
	}

	if len(subitems) == 0 {
		return nil
	}

	builder := r.sb.
		Insert("order_item_subitems").
		Columns("id", "order_item_id", "name", "quantity")
	for _, s := range subitems {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		builder = builder.Values(id, itemID, s.Name, s.Quantity)
	}

	sql, args, err = builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert subitems of %s: %w", itemID, err)
	}

	return nil
}

// SubitemsByItemIDs returns sub-items grouped by parent item id.
func (r *PostgresOrderItemRepository) SubitemsByItemIDs(
	ctx context.Context,
	ids []string,
) (map[string][]orderitem.Subitem, error) {
	result := make(map[string][]orderitem.Subitem)
	if len(ids) == 0 {
		return result, nil
	}

	sql, args, err := r.sb.
		Select("id", "order_item_id", "name", "quantity").
		From("order_item_subitems").
		Where(sq.Eq{"order_item_id": ids}).
		OrderBy("order_item_id", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subitems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s orderitem.Subitem
		if err := rows.Scan(&s.ID, &s.OrderItemID, &s.Name, &s.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan subitem: %w", err)
		}
		result[s.OrderItemID] = append(result[s.OrderItemID], s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves order items joined with their orders based on filter criteria.
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]order.ItemRow, error) {
	columns := make([]string, 0, len(itemColumns)+len(orderrepo.Columns))
	for _, c := range itemColumns {
		columns = append(columns, "oi."+c)
	}
	for _, c := range orderrepo.Columns {
		columns = append(columns, "o."+c)
	}

	query := r.sb.
		Select(columns...).
		From("order_items oi").
		Join("orders o ON o.id = oi.order_id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"oi.id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"oi.order_id": filter.OrderIds})
	}

	if len(filter.ProductIds) > 0 {
		query = query.Where(sq.Eq{"oi.product_id": filter.ProductIds})
	}

	if len(filter.Statuses) > 0 {
		query = query.Where(sq.Eq{"oi.kitchen_status": kitchenstatus.Strings(filter.Statuses)})
	}

	if !filter.UpdatedFrom.IsZero() {
		query = query.Where(sq.GtOrEq{"oi.last_updated": filter.UpdatedFrom})
	}

	if !filter.UpdatedTo.IsZero() {
		query = query.Where(sq.LtOrEq{"oi.last_updated": filter.UpdatedTo})
	}

	sql, args, err := query.OrderBy("o.created ASC", "o.id", "oi.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []order.ItemRow
	for rows.Next() {
		var itemDal OrderItemDal
		var orderDal orderrepo.OrderDal

		targets := append(itemDal.scanTargets(), orderDal.ScanTargets()...)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item, err := itemDal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}

		result = append(result, order.ItemRow{
			Order: *orderDal.ToModel(),
			Item:  *item,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus sets the status of every selected item and returns the previous status per row.
func (r *PostgresOrderItemRepository) UpdateStatus(
	ctx context.Context,
	model orderitem.UpdateStatusModel,
) ([]statuslog.Change, error) {
	if model.Empty() {
		return nil, nil
	}

	prev := r.sb.
		Select("id", "kitchen_status").
		From("order_items")

	if len(model.Ids) > 0 {
		prev = prev.Where(sq.Eq{"id": model.Ids})
	}

	if len(model.OrderIds) > 0 {
		prev = prev.Where(sq.Eq{"order_id": model.OrderIds})
	}

	if len(model.ProductIds) > 0 {
		prev = prev.Where(sq.Eq{"product_id": model.ProductIds})
	}

	if len(model.FromStatuses) > 0 {
		prev = prev.Where(sq.Eq{"kitchen_status": kitchenstatus.Strings(model.FromStatuses)})
	}

	prevSQL, args, err := prev.OrderBy("id").Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	n := len(args)
	sql := fmt.Sprintf(`
		WITH prev AS (%s)
		UPDATE order_items oi
		SET kitchen_status = $%d, last_updated = $%d
		FROM prev
		WHERE oi.id = prev.id
		RETURNING oi.id, oi.order_id, prev.kitchen_status`, prevSQL, n+1, n+2)
	args = append(args, model.To.String(), model.At)

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order item status: %w", err)
	}
	defer rows.Close()

	var changes []statuslog.Change
	for rows.Next() {
		var c statuslog.Change
		var from string
		if err := rows.Scan(&c.OrderItemID, &c.OrderID, &from); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		if c.From, err = kitchenstatus.Parse(from); err != nil {
			return nil, fmt.Errorf("order item %s: %w", c.OrderItemID, err)
		}
		c.To = model.To
		changes = append(changes, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return changes, nil
}

// CountByOrder returns the number of items of an order.
func (r *PostgresOrderItemRepository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	sql, args, err := r.sb.
		Select("count(*)").
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items of order %s: %w", orderID, err)
	}

	return count, nil
}
