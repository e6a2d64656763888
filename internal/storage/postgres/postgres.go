package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/nutricart/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var productColumns = []string{
	"code", "name", "category",
	"proteins", "fats", "carbohydrates", "calories", "cholesterol", "sugars",
}

// PostgresStorage — Postgres реализация ProductsStorage
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New открывает пул соединений и проверяет доступность базы
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) ListProducts(ctx context.Context) ([]storage.ProductRow, error) {
	query := `
		SELECT code, name, category, proteins, fats, carbohydrates, calories, cholesterol, sugars
		FROM products
		ORDER BY code ASC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []storage.ProductRow{}
	for rows.Next() {
		var row storage.ProductRow
		err := rows.Scan(
			&row.Code,
			&row.Name,
			&row.Category,
			&row.Proteins,
			&row.Fats,
			&row.Carbohydrates,
			&row.Calories,
			&row.Cholesterol,
			&row.Sugars,
		)
		if err != nil {
			return nil, err
		}
		products = append(products, row)
	}

	return products, rows.Err()
}

// ReplaceProducts truncates the table and bulk-loads rows with COPY in one
// transaction, so readers never observe a partial catalog.
func (p *PostgresStorage) ReplaceProducts(ctx context.Context, rows []storage.ProductRow) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE products`); err != nil {
		return 0, fmt.Errorf("truncate products: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"products"}, productColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.Code, r.Name, r.Category,
				r.Proteins, r.Fats, r.Carbohydrates, r.Calories, r.Cholesterol, r.Sugars,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return n, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
