package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentokart/dentokart/internal/domain/discount"
)

const (
	discountColumns = `id, name, description, type, value, is_active, starts_at, ends_at,
		priority, stackable, product_ids, category_ids, manufacturer_ids, country_ids, tags, created_at`

	// The scope predicate is deliberately absent here: the query narrows to
	// enabled, in-window rules and targeting is matched in memory by the
	// discount service.
	listActiveDiscountsSQL = `SELECT ` + discountColumns + `
		FROM discounts
		WHERE is_active
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at >= $1)
		ORDER BY priority, created_at`

	listDiscountsSQL = `SELECT ` + discountColumns + `
		FROM discounts ORDER BY priority, created_at`

	getDiscountSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	insertDiscountSQL = `INSERT INTO discounts (id, name, description, type, value, is_active,
		starts_at, ends_at, priority, stackable,
		product_ids, category_ids, manufacturer_ids, country_ids, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	updateDiscountSQL = `UPDATE discounts SET name = $2, description = $3, type = $4, value = $5,
		is_active = $6, starts_at = $7, ends_at = $8, priority = $9, stackable = $10,
		product_ids = $11, category_ids = $12, manufacturer_ids = $13, country_ids = $14, tags = $15
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository plus the admin CRUD
// surface, backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns enabled discounts whose validity window contains now,
// ordered by ascending priority with creation time as tiebreak.
func (r *DiscountRepository) ListActive(ctx context.Context, now time.Time) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// List returns all discounts for the admin surface.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Get returns a single discount by id.
func (r *DiscountRepository) Get(ctx context.Context, id string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	return &d, nil
}

// Create persists a new discount rule.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, insertDiscountSQL,
		d.ID, d.Name, d.Description, string(d.Type), d.Value, d.IsActive,
		d.StartsAt, d.EndsAt, d.Priority, d.Stackable,
		d.ProductIDs, d.CategoryIDs, d.ManufacturerIDs, d.CountryIDs, d.Tags, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// Update overwrites an existing discount rule.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		d.ID, d.Name, d.Description, string(d.Type), d.Value, d.IsActive,
		d.StartsAt, d.EndsAt, d.Priority, d.Stackable,
		d.ProductIDs, d.CategoryIDs, d.ManufacturerIDs, d.CountryIDs, d.Tags,
	)
	if err != nil {
		return fmt.Errorf("updating discount %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Delete removes a discount rule.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d   discount.Discount
		typ string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &typ, &d.Value, &d.IsActive,
		&d.StartsAt, &d.EndsAt, &d.Priority, &d.Stackable,
		&d.ProductIDs, &d.CategoryIDs, &d.ManufacturerIDs, &d.CountryIDs, &d.Tags, &d.CreatedAt,
	)
	d.Type = discount.Type(typ)
	return d, err
}
