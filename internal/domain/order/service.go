package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
)

// historyLimit caps the order history page size.
const historyLimit = 50

// Pricer computes the committed unit price for a pricing context. Satisfied
// by discount.Service.
type Pricer interface {
	ComputePrice(ctx context.Context, pctx discount.Context) (discount.Quote, error)
}

// ItemRequest is one requested cart line. Price and Title are advisory
// client input, echoed back but never trusted: the service reloads the live
// variant and prices it itself.
type ItemRequest struct {
	ProductID string
	SKU       string
	Quantity  int
	Price     decimal.Decimal
	Title     string
	Options   map[string]string
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	Phone       string
	ClientID    string
	CustomerID  string
	Items       []ItemRequest
	DeliveryFee decimal.Decimal
	Name        string
	Comment     string
	// IdempotencyKey, when set, makes repeated submissions of the same
	// logical order return the first persisted result.
	IdempotencyKey string
}

// ownerKey identifies who the idempotency key belongs to: the authenticated
// customer when present, else the client session.
func (r *CreateRequest) ownerKey() string {
	if r.CustomerID != "" {
		return r.CustomerID
	}
	return r.ClientID
}

// HashIdempotencyKey derives the stable hash stored under the uniqueness
// constraint from the owner key and the client-supplied token.
func HashIdempotencyKey(owner, key string) string {
	sum := sha256.Sum256([]byte(owner + ":" + key))
	return hex.EncodeToString(sum[:])
}

// Service assembles orders from live catalog data and committed prices.
type Service struct {
	products catalog.Repository
	pricer   Pricer
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products catalog.Repository, pricer Pricer, orders Repository) *Service {
	return &Service{
		products: products,
		pricer:   pricer,
		orders:   orders,
	}
}

// Create turns a client-submitted cart into a priced, durable Order,
// exactly once per logical submission.
//
// Every requested line is revalidated against the live catalog and repriced
// through the pricing facade; items price concurrently since there is no
// ordering dependency between them. The order document is built in full
// before the single insert, so a failure on any line persists nothing.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	owner := req.ownerKey()
	hash := ""
	if req.IdempotencyKey != "" {
		if owner == "" {
			return nil, ErrNoIdempotencyOwner
		}
		hash = HashIdempotencyKey(owner, req.IdempotencyKey)
		existing, err := s.orders.FindByIdempotency(ctx, owner, hash)
		switch {
		case err == nil:
			return existing, nil
		case errors.Is(err, ErrOrderNotFound):
			// First submission, fall through.
		default:
			return nil, errors.Wrap(err, "idempotency lookup")
		}
	}

	items := make([]ItemSnapshot, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range req.Items {
		g.Go(func() error {
			snap, err := s.priceItem(gctx, item)
			if err != nil {
				return err
			}
			items[i] = *snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	itemsTotal := decimal.Zero
	for _, it := range items {
		itemsTotal = itemsTotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	deliveryFee := req.DeliveryFee
	if deliveryFee.IsNegative() {
		deliveryFee = decimal.Zero
	}

	o := &Order{
		ID:                 uuid.New().String(),
		Phone:              req.Phone,
		ClientID:           req.ClientID,
		CustomerID:         req.CustomerID,
		Items:              items,
		ItemsTotal:         itemsTotal,
		DeliveryFee:        deliveryFee,
		Total:              itemsTotal.Add(deliveryFee),
		Status:             StatusNew,
		Name:               req.Name,
		Comment:            req.Comment,
		IdempotencyKey:     req.IdempotencyKey,
		IdempotencyKeyHash: hash,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		// Concurrent duplicate submission: the unique index acted as the
		// mutual-exclusion point, so the winner's order is the answer.
		if hash != "" && errors.Is(err, ErrDuplicateIdempotencyKey) {
			existing, ferr := s.orders.FindByIdempotency(ctx, owner, hash)
			if ferr != nil {
				return nil, errors.Wrap(ferr, "fetch order after idempotency conflict")
			}
			return existing, nil
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// priceItem reloads the authoritative product/variant pair and prices it.
func (s *Service) priceItem(ctx context.Context, item ItemRequest) (*ItemSnapshot, error) {
	p, err := s.products.GetActive(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get product %s", item.ProductID)
	}

	v := p.ActiveVariant(item.SKU)
	if v == nil {
		return nil, &InvalidVariantError{ProductID: item.ProductID, SKU: item.SKU}
	}

	quote, err := s.pricer.ComputePrice(ctx, discount.Context{
		Price:          v.Price,
		ProductID:      p.ID,
		CategoryIDs:    p.CategoryIDs,
		ManufacturerID: v.ManufacturerID,
		CountryID:      v.CountryID,
		Tags:           p.Tags,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "price product %s sku %s", item.ProductID, item.SKU)
	}

	return &ItemSnapshot{
		ProductID:        p.ID,
		SKU:              v.SKU,
		Quantity:         item.Quantity,
		Price:            quote.PriceFinal,
		PriceOriginal:    v.Price,
		Title:            p.Title,
		Options:          v.Options,
		ManufacturerID:   v.ManufacturerID,
		CountryID:        v.CountryID,
		Unit:             v.Unit,
		DiscountsApplied: quote.Applied,
	}, nil
}

// History returns the caller's most recent orders, newest first.
func (s *Service) History(ctx context.Context, phone, clientID string) ([]Order, error) {
	return s.orders.History(ctx, phone, clientID, historyLimit)
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// UpdateStatus performs an admin status transition, enforcing the state
// machine. The assembler itself only ever creates orders in StatusNew.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}
	if err := s.orders.UpdateStatus(ctx, id, to); err != nil {
		return nil, errors.Wrapf(err, "update order %s status", id)
	}
	o.Status = to
	return o, nil
}
