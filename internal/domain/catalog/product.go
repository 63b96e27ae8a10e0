// Package catalog holds the product/variant model and the read contracts
// the pricing and order paths depend on.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when a requested product does not exist or
// is inactive.
var ErrProductNotFound = errors.New("product not found")

// Variant is a purchasable configuration of a product: SKU, price, options.
type Variant struct {
	SKU            string            `json:"sku"`
	ManufacturerID string            `json:"manufacturerId"`
	CountryID      string            `json:"countryId,omitempty"`
	Options        map[string]string `json:"options,omitempty"`
	Price          decimal.Decimal   `json:"price"`
	Unit           string            `json:"unit,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Barcode        string            `json:"barcode,omitempty"`
	IsActive       bool              `json:"isActive"`
	VariantKey     string            `json:"variantKey,omitempty"`
}

// Product is a catalog item with its variants and the denormalized
// aggregates recomputed on every write (see RecomputeAggregates).
type Product struct {
	ID          string
	Slug        string
	Title       string
	Description string
	CategoryIDs []string
	Tags        []string
	Images      []string
	Attributes  map[string]string
	Variants    []Variant

	ManufacturerIDs []string
	CountryIDs      []string
	PriceMin        decimal.Decimal
	PriceMax        decimal.Decimal
	OptionsSummary  map[string][]string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveVariant returns the active variant with the given SKU, or nil.
func (p *Product) ActiveVariant(sku string) *Variant {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.SKU == sku && v.IsActive {
			return v
		}
	}
	return nil
}

// ListQuery narrows and pages a product listing.
type ListQuery struct {
	CategoryID      string
	ManufacturerIDs []string
	CountryIDs      []string
	PriceFrom       *decimal.Decimal
	PriceTo         *decimal.Decimal
	Tags            []string
	Page            int
	Limit           int
}

// Clamp normalizes pagination to page >= 1 and limit within [1, 50],
// defaulting to 20.
func (q *ListQuery) Clamp() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 50 {
		q.Limit = 20
	}
}

// Repository defines catalog persistence. Reads used by the order path only
// ever see active products; admin writes go through Create/Update, which
// are expected to store aggregate fields exactly as given (the caller runs
// RecomputeAggregates first).
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Product, int, error)
	GetActive(ctx context.Context, idOrSlug string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}
