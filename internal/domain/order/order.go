// Package order implements order assembly: authoritative re-pricing of
// client carts, idempotent commits, and the order status machine.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/dentokart/dentokart/internal/domain/discount"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// transitions is the full status machine. done and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusDone, StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sentinel errors for order assembly.
var (
	ErrEmptyItems    = errors.New("items required")
	ErrOrderNotFound = errors.New("order not found")
	// ErrNoIdempotencyOwner rejects an idempotency key that cannot be scoped
	// to anyone. Without an owner all anonymous submissions would share one
	// key space, and a key collision would hand one caller another caller's
	// order.
	ErrNoIdempotencyOwner = errors.New("idempotency key requires a client or customer id")
	// ErrDuplicateIdempotencyKey is returned by Repository.Create when the
	// (owner, idempotency hash) uniqueness constraint is violated. The
	// service resolves it by returning the winner's order; it never reaches
	// a caller.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidVariantError indicates the requested SKU does not exist on the
// product, or exists but is inactive.
type InvalidVariantError struct {
	ProductID string
	SKU       string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("variant %s not available on product %s", e.SKU, e.ProductID)
}

// InvalidTransitionError indicates a disallowed status change.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ItemSnapshot is a line item frozen at order-creation time. Price is the
// post-discount unit price, PriceOriginal the live variant price at commit;
// together with the discount trail this detaches the order from any later
// catalog or discount change.
type ItemSnapshot struct {
	ProductID        string             `json:"productId"`
	SKU              string             `json:"sku"`
	Quantity         int                `json:"quantity"`
	Price            decimal.Decimal    `json:"price"`
	PriceOriginal    decimal.Decimal    `json:"priceOriginal"`
	Title            string             `json:"title"`
	Options          map[string]string  `json:"options,omitempty"`
	ManufacturerID   string             `json:"manufacturerId,omitempty"`
	CountryID        string             `json:"countryId,omitempty"`
	Unit             string             `json:"unit,omitempty"`
	DiscountsApplied []discount.Applied `json:"discountsApplied,omitempty"`
}

// Order is an immutable (post-creation) commercial transaction. Only Status
// changes after creation, through UpdateStatus.
type Order struct {
	ID                 string
	Phone              string
	ClientID           string
	CustomerID         string
	Items              []ItemSnapshot
	ItemsTotal         decimal.Decimal
	DeliveryFee        decimal.Decimal
	Total              decimal.Decimal
	Status             Status
	Name               string
	Comment            string
	IdempotencyKey     string
	IdempotencyKeyHash string
	CreatedAt          time.Time
}

// Repository defines persistence for orders. Create must enforce a
// uniqueness constraint on (owner, idempotency hash) and surface violations
// as ErrDuplicateIdempotencyKey; Get and FindByIdempotency return
// ErrOrderNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotency(ctx context.Context, owner, hash string) (*Order, error)
	History(ctx context.Context, phone, clientID string, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, to Status) error
}
