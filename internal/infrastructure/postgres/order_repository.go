package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/ministore/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository persists orders in Postgres. The items snapshot is stored
// as jsonb; the paid guard is a conditional UPDATE so concurrent
// reconciliation paths serialize on the row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ domain.Repository = (*OrderRepository)(nil)

// EnsureSchema creates the required tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
  id              text PRIMARY KEY,
  customer_email  text NOT NULL DEFAULT '',
  items           jsonb NOT NULL,
  total_amount    bigint NOT NULL,
  status          text NOT NULL,
  tracking_number text NOT NULL DEFAULT '',
  provider_name   text NOT NULL DEFAULT '',
  provider_ref    text NOT NULL DEFAULT '',
  created_at      timestamptz NOT NULL,
  updated_at      timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS orders_provider_ref_idx
  ON orders (provider_ref) WHERE provider_ref <> '';
CREATE TABLE IF NOT EXISTS products (
  id         text PRIMARY KEY,
  title      text NOT NULL,
  price      double precision NOT NULL,
  inventory  integer NOT NULL DEFAULT 0,
  updated_at timestamptz NOT NULL
);`)
	return err
}

const orderColumns = `id, customer_email, items, total_amount, status, tracking_number, provider_name, provider_ref, created_at, updated_at`

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("order repository: marshal items: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `INSERT INTO orders(`+orderColumns+`)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (id) DO NOTHING`,
		order.ID, order.CustomerEmail, items, order.TotalAmount, string(order.Status),
		order.TrackingNumber, order.ProviderName, order.ProviderRef,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *OrderRepository) GetByProviderRef(ctx context.Context, reference string) (*domain.Order, error) {
	if reference == "" {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE provider_ref = $1`, reference)
	return scanOrder(row)
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) AttachPayment(ctx context.Context, id, providerName, reference string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders
        SET provider_name = $2, provider_ref = $3, updated_at = now()
        WHERE id = $1 AND provider_ref = ''`,
		id, providerName, reference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrPaymentSet
	}
	return nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE orders
        SET status = $2, updated_at = now()
        WHERE id = $1 AND status <> $2`,
		id, string(domain.StatusPaid))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateFulfillment(ctx context.Context, id string, patch domain.FulfillmentPatch) (bool, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}

	status := existing.Status
	if patch.Status != nil {
		status = *patch.Status
	}
	tracking := existing.TrackingNumber
	if patch.TrackingNumber != nil {
		tracking = *patch.TrackingNumber
	}
	if status == existing.Status && tracking == existing.TrackingNumber {
		return false, nil
	}

	tag, err := r.pool.Exec(ctx, `UPDATE orders
        SET status = $2, tracking_number = $3, updated_at = now()
        WHERE id = $1`,
		id, string(status), tracking)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o      domain.Order
		items  []byte
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerEmail, &items, &o.TotalAmount, &status,
		&o.TrackingNumber, &o.ProviderName, &o.ProviderRef, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order repository: unmarshal items: %w", err)
	}
	o.Status = domain.Status(status)
	return &o, nil
}
