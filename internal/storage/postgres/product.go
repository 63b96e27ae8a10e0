package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentokart/dentokart/internal/domain/catalog"
)

const (
	productColumns = `id, slug, title, description, category_ids, tags, images, attributes,
		variants, manufacturer_ids, country_ids, price_min, price_max, options_summary,
		is_active, created_at, updated_at`

	getActiveProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE (id = $1 OR slug = $1) AND is_active`

	insertProductSQL = `INSERT INTO products (id, slug, title, description, category_ids, tags,
		images, attributes, variants, manufacturer_ids, country_ids, price_min, price_max,
		options_summary, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	findProductBySKUSQL = `SELECT ` + productColumns + ` FROM products
		WHERE variants @> jsonb_build_array(jsonb_build_object('sku', $1::text))`

	updateProductSQL = `UPDATE products SET slug = $2, title = $3, description = $4,
		category_ids = $5, tags = $6, images = $7, attributes = $8, variants = $9,
		manufacturer_ids = $10, country_ids = $11, price_min = $12, price_max = $13,
		options_summary = $14, is_active = $15, updated_at = $16
		WHERE id = $1`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// Variants are stored as a JSONB document per product, mirroring the
// embedded-document shape the order path snapshots from.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetActive returns an active product by id or slug.
// Returns catalog.ErrProductNotFound for unknown or inactive products.
func (r *ProductRepository) GetActive(ctx context.Context, idOrSlug string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getActiveProductSQL, idOrSlug)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", idOrSlug, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", idOrSlug, err)
	}
	return &p, nil
}

// FindBySKU returns the product carrying a variant with the given SKU.
// Used by the supplier feed ingest to resolve price updates; not part of
// the catalog.Repository contract.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, findProductBySKUSQL, sku)
	if err != nil {
		return nil, fmt.Errorf("finding product by sku %q: %w", sku, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("finding product by sku %q: %w", sku, err)
	}
	if len(products) == 0 {
		return nil, catalog.ErrProductNotFound
	}
	return &products[0], nil
}

// List returns active products narrowed by the query, plus the total match
// count for pagination. Filters compose with AND; the price-range filter
// matches any product whose [price_min, price_max] overlaps the requested
// bounds.
func (r *ProductRepository) List(ctx context.Context, q catalog.ListQuery) ([]catalog.Product, int, error) {
	q.Clamp()

	where := []string{"is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.CategoryID != "" {
		where = append(where, "category_ids @> ARRAY["+arg(q.CategoryID)+"]")
	}
	if len(q.ManufacturerIDs) > 0 {
		where = append(where, "manufacturer_ids && "+arg(q.ManufacturerIDs))
	}
	if len(q.CountryIDs) > 0 {
		where = append(where, "country_ids && "+arg(q.CountryIDs))
	}
	if len(q.Tags) > 0 {
		where = append(where, "tags && "+arg(q.Tags))
	}
	if q.PriceFrom != nil {
		where = append(where, "price_max >= "+arg(*q.PriceFrom))
	}
	if q.PriceTo != nil {
		where = append(where, "price_min <= "+arg(*q.PriceTo))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM products WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	listSQL := "SELECT " + productColumns + " FROM products WHERE " + cond +
		" ORDER BY created_at DESC LIMIT " + arg(q.Limit) + " OFFSET " + arg((q.Page-1)*q.Limit)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return items, total, nil
}

// Create persists a new product. The caller is expected to have run
// catalog.RecomputeAggregates beforehand.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	variants, attributes, summary, err := marshalProductDocs(p)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Slug, p.Title, p.Description, p.CategoryIDs, p.Tags, p.Images, attributes,
		variants, p.ManufacturerIDs, p.CountryIDs, p.PriceMin, p.PriceMax, summary,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	variants, attributes, summary, err := marshalProductDocs(p)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Slug, p.Title, p.Description, p.CategoryIDs, p.Tags, p.Images, attributes,
		variants, p.ManufacturerIDs, p.CountryIDs, p.PriceMin, p.PriceMax, summary,
		p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func marshalProductDocs(p *catalog.Product) (variants, attributes, summary []byte, err error) {
	if variants, err = json.Marshal(p.Variants); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling variants: %w", err)
	}
	if p.Attributes == nil {
		attributes = []byte("{}")
	} else if attributes, err = json.Marshal(p.Attributes); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling attributes: %w", err)
	}
	if p.OptionsSummary == nil {
		summary = []byte("{}")
	} else if summary, err = json.Marshal(p.OptionsSummary); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling options summary: %w", err)
	}
	return variants, attributes, summary, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p          catalog.Product
		variants   []byte
		attributes []byte
		summary    []byte
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.CategoryIDs, &p.Tags, &p.Images, &attributes,
		&variants, &p.ManufacturerIDs, &p.CountryIDs, &p.PriceMin, &p.PriceMax, &summary,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return p, fmt.Errorf("unmarshaling variants for product %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
		return p, fmt.Errorf("unmarshaling attributes for product %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(summary, &p.OptionsSummary); err != nil {
		return p, fmt.Errorf("unmarshaling options summary for product %q: %w", p.ID, err)
	}
	return p, nil
}
