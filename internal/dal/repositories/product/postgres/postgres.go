package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
)

// ProductDal represents product data access layer model.
type ProductDal struct {
	Id          string    `db:"id"`
	Name        string    `db:"name"`
	Category    string    `db:"category"`
	LastUpdated time.Time `db:"last_updated"`
}

// ToModel converts ProductDal to service layer Product model.
func (p *ProductDal) ToModel() product.Product {
	return product.Product{
		ID:          p.Id,
		Name:        p.Name,
		Category:    p.Category,
		LastUpdated: p.LastUpdated,
	}
}

// PostgresProductRepository represents a Postgres product catalogue repository.
type PostgresProductRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresProductRepository creates a new Postgres product repository.
func NewPostgresProductRepository(conn postgres.Conn) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts products or refreshes name and category. Ids must be unique within the batch.
func (r *PostgresProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	builder := r.sb.
		Insert("products").
		Columns("id", "name", "category", "last_updated").
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			last_updated = EXCLUDED.last_updated`)

	for _, p := range products {
		builder = builder.Values(p.ID, p.Name, p.Category, p.LastUpdated)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}

	return nil
}

// List returns the catalogue ordered by category and name.
func (r *PostgresProductRepository) List(ctx context.Context) ([]product.Product, error) {
	sql, args, err := r.sb.
		Select("id", "name", "category", "last_updated").
		From("products").
		OrderBy("category", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		var dal ProductDal
		if err := rows.Scan(&dal.Id, &dal.Name, &dal.Category, &dal.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
