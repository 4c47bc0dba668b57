package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/jackc/pgx/v5"
)

// PostgresExcludedRepository stores the excluded product set in excluded_products.
type PostgresExcludedRepository struct {
	pgClient *postgres.Client
	sb       sq.StatementBuilderType
}

// NewPostgresExcludedRepository creates a new Postgres excluded products repository.
func NewPostgresExcludedRepository(pgClient *postgres.Client) *PostgresExcludedRepository {
	return &PostgresExcludedRepository{
		pgClient: pgClient,
		sb:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List returns every excluded product id.
func (r *PostgresExcludedRepository) List(ctx context.Context) ([]string, error) {
	sql, args, err := r.sb.
		Select("product_id").
		From("excluded_products").
		OrderBy("product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pgClient.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query excluded products: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect excluded products: %w", err)
	}

	return ids, nil
}

// Replace swaps the whole set in one transaction.
func (r *PostgresExcludedRepository) Replace(ctx context.Context, ids []string) (err error) {
	tx, err := r.pgClient.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && err == nil {
			err = fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM excluded_products"); err != nil {
		return fmt.Errorf("failed to clear excluded products: %w", err)
	}

	if len(ids) > 0 {
		builder := r.sb.
			Insert("excluded_products").
			Columns("product_id").
			Suffix("ON CONFLICT (product_id) DO NOTHING")
		for _, id := range ids {
			builder = builder.Values(id)
		}

		sql, args, buildErr := builder.ToSql()
		if buildErr != nil {
			return fmt.Errorf("failed to build insert query: %w", buildErr)
		}

		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to insert excluded products: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
