package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentokart/dentokart/internal/domain/order"
)

const (
	orderColumns = `id, phone, client_id, customer_id, items, items_total, delivery_fee, total,
		status, name, comment, idempotency_key, idempotency_hash, created_at`

	insertOrderSQL = `INSERT INTO orders (id, phone, client_id, customer_id, items, items_total,
		delivery_fee, total, status, name, comment, idempotency_owner, idempotency_key,
		idempotency_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	findByIdempotencySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE idempotency_owner = $1 AND idempotency_hash = $2 AND idempotency_hash <> ''`

	// Both identifiers must match; phone alone must not be enough to read
	// someone's orders.
	orderHistorySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE phone = $1 AND client_id = $2
		ORDER BY created_at DESC LIMIT $3`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Item
// snapshots are serialized to JSON for storage in the JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. A unique violation on the idempotency index
// is reported as order.ErrDuplicateIdempotencyKey so the service can treat
// the race as an idempotent replay.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	owner := o.CustomerID
	if owner == "" {
		owner = o.ClientID
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.Phone, o.ClientID, o.CustomerID, itemsJSON, o.ItemsTotal,
		o.DeliveryFee, o.Total, string(o.Status), o.Name, o.Comment,
		owner, o.IdempotencyKey, o.IdempotencyKeyHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return order.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns an order by id, or order.ErrOrderNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.queryOne(ctx, getOrderSQL, id)
}

// FindByIdempotency returns the order committed under (owner, hash), or
// order.ErrOrderNotFound.
func (r *OrderRepository) FindByIdempotency(ctx context.Context, owner, hash string) (*order.Order, error) {
	return r.queryOne(ctx, findByIdempotencySQL, owner, hash)
}

// History returns the latest orders for a (phone, clientID) pair, newest
// first.
func (r *OrderRepository) History(ctx context.Context, phone, clientID string, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, orderHistorySQL, phone, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing order history: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the order's status. Transition legality is the
// service's responsibility.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(to))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) queryOne(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("querying order: %w", err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		status string
	)
	err := row.Scan(
		&o.ID, &o.Phone, &o.ClientID, &o.CustomerID, &items, &o.ItemsTotal,
		&o.DeliveryFee, &o.Total, &status, &o.Name, &o.Comment,
		&o.IdempotencyKey, &o.IdempotencyKeyHash, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	return o, nil
}
