// Package discount implements the promotional pricing engine: targeting-rule
// matching, stacking resolution, and the numeric discount application core.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested discount does not exist.
var ErrNotFound = errors.New("discount not found")

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercent subtracts value% of the price, value interpreted as 0-100.
	TypePercent Type = "percent"
	// TypeFixed subtracts a fixed currency amount from the price.
	TypeFixed Type = "fixed"
)

// Discount is a promotional rule. Scope slices are independent filter
// dimensions; an empty slice means the dimension never excludes a context,
// so a discount with every scope empty applies universally.
type Discount struct {
	ID          string
	Name        string
	Description string
	Type        Type
	Value       decimal.Decimal
	IsActive    bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	// Priority orders stackable application (lower applies earlier). It does
	// not influence non-stackable selection beyond tie-breaking.
	Priority  int
	Stackable bool

	ProductIDs      []string
	CategoryIDs     []string
	ManufacturerIDs []string
	CountryIDs      []string
	Tags            []string

	CreatedAt time.Time
}

// Context is the snapshot of a priced item's attributes needed to evaluate
// discount applicability. It is built per computation and never persisted.
type Context struct {
	Price          decimal.Decimal
	ProductID      string
	CategoryIDs    []string
	ManufacturerID string
	CountryID      string
	Tags           []string
}

// Applied records one discount's effect on a price. It is embedded into
// order line items as an immutable audit trail.
type Applied struct {
	DiscountID  string          `json:"discountId"`
	Name        string          `json:"name"`
	Type        Type            `json:"type"`
	Value       decimal.Decimal `json:"value"`
	PriceBefore decimal.Decimal `json:"priceBefore"`
	PriceAfter  decimal.Decimal `json:"priceAfter"`
}

// Quote is the result of pricing a context: the final unit price and the
// ordered trail of discounts that produced it.
type Quote struct {
	PriceFinal decimal.Decimal
	Applied    []Applied
}

// Repository provides read access to discount rules. ListActive returns all
// discounts that are enabled and inside their validity window at the given
// instant, ordered by ascending priority with creation time as tiebreak.
// Scope matching is intentionally NOT part of the query: it is evaluated in
// memory by Matches so the targeting logic stays testable without a store.
type Repository interface {
	ListActive(ctx context.Context, now time.Time) ([]Discount, error)
}
