package postgres

import (
	"context"

	domain "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

var _ domain.Repository = (*ProductRepository)(nil)

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	if len(ids) == 0 {
		return map[string]*domain.Product{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, title, price, inventory, updated_at
        FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Inventory, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

// Decrement floors inventory at zero in a single statement; a missing product
// affects no rows and is not an error.
func (r *ProductRepository) Decrement(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE products
        SET inventory = GREATEST(inventory - $2, 0), updated_at = now()
        WHERE id = $1`, productID, quantity)
	return err
}
