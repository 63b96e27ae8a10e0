package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeCatalog struct {
	products map[string]*catalog.Product
}

func (f *fakeCatalog) GetActive(_ context.Context, idOrSlug string) (*catalog.Product, error) {
	p, ok := f.products[idOrSlug]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) List(context.Context, catalog.ListQuery) ([]catalog.Product, int, error) {
	return nil, 0, nil
}
func (f *fakeCatalog) Create(context.Context, *catalog.Product) error { return nil }
func (f *fakeCatalog) Update(context.Context, *catalog.Product) error { return nil }

// fakePricer knocks 10% off everything, recording the trail.
type fakePricer struct{}

func (fakePricer) ComputePrice(_ context.Context, pctx discount.Context) (discount.Quote, error) {
	after := discount.ApplyOne(pctx.Price, discount.TypePercent, dec("10"))
	return discount.Quote{
		PriceFinal: after,
		Applied: []discount.Applied{{
			DiscountID:  "ten",
			Type:        discount.TypePercent,
			Value:       dec("10"),
			PriceBefore: pctx.Price,
			PriceAfter:  after,
		}},
	}, nil
}

type fakeOrders struct {
	byHash     map[string]*Order
	byID       map[string]*Order
	createErr  error
	createN    int
	missFirst  bool
	lookups    int
	statusErrs map[string]error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byHash: map[string]*Order{}, byID: map[string]*Order{}}
}

func (f *fakeOrders) Create(_ context.Context, o *Order) error {
	f.createN++
	if f.createErr != nil {
		return f.createErr
	}
	if o.IdempotencyKeyHash != "" {
		if _, exists := f.byHash[o.IdempotencyKeyHash]; exists {
			return ErrDuplicateIdempotencyKey
		}
		f.byHash[o.IdempotencyKeyHash] = o
	}
	f.byID[o.ID] = o
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (*Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) FindByIdempotency(_ context.Context, _, hash string) (*Order, error) {
	f.lookups++
	if f.missFirst && f.lookups == 1 {
		return nil, ErrOrderNotFound
	}
	o, ok := f.byHash[hash]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) History(context.Context, string, string, int) ([]Order, error) {
	return nil, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, to Status) error {
	if err := f.statusErrs[id]; err != nil {
		return err
	}
	o, ok := f.byID[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = to
	return nil
}

func testProduct() *catalog.Product {
	return &catalog.Product{
		ID:          "p1",
		Title:       "Universal Composite",
		CategoryIDs: []string{"restorative"},
		Variants: []catalog.Variant{
			{SKU: "SKU-1", ManufacturerID: "m1", CountryID: "de", Price: dec("100"), Unit: "syringe", IsActive: true},
			{SKU: "SKU-OFF", ManufacturerID: "m1", Price: dec("50"), IsActive: false},
		},
		IsActive: true,
	}
}

func newTestService(orders Repository) *Service {
	return NewService(&fakeCatalog{products: map[string]*catalog.Product{"p1": testProduct()}}, fakePricer{}, orders)
}

func TestCreate_EmptyItems(t *testing.T) {
	svc := newTestService(newFakeOrders())

	_, err := svc.Create(context.Background(), CreateRequest{Phone: "123"})
	assert.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	svc := newTestService(newFakeOrders())

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 0}},
	})

	var qerr *InvalidQuantityError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "p1", qerr.ProductID)
}

func TestCreate_UnknownProduct(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: "ghost", SKU: "SKU-1", Quantity: 1}},
	})

	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.Zero(t, orders.createN, "nothing must be persisted on failure")
}

func TestCreate_InactiveVariant(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: "p1", SKU: "SKU-OFF", Quantity: 1}},
	})

	var verr *InvalidVariantError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "SKU-OFF", verr.SKU)
	assert.Zero(t, orders.createN)
}

func TestCreate_PricesAndTotals(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	o, err := svc.Create(context.Background(), CreateRequest{
		Phone: "123",
		Items: []ItemRequest{
			// Client-claimed price is ignored; the live variant is repriced.
			{ProductID: "p1", SKU: "SKU-1", Quantity: 3, Price: dec("1")},
		},
		DeliveryFee: dec("15"),
	})
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.True(t, it.Price.Equal(dec("90")), "committed price is the discounted one")
	assert.True(t, it.PriceOriginal.Equal(dec("100")))
	assert.Equal(t, "Universal Composite", it.Title)
	assert.Equal(t, "m1", it.ManufacturerID)
	require.Len(t, it.DiscountsApplied, 1)
	assert.Equal(t, "ten", it.DiscountsApplied[0].DiscountID)

	assert.True(t, o.ItemsTotal.Equal(dec("270")))
	assert.True(t, o.DeliveryFee.Equal(dec("15")))
	assert.True(t, o.Total.Equal(dec("285")))
	assert.Equal(t, StatusNew, o.Status)
	assert.NotEmpty(t, o.ID)
}

func TestCreate_NegativeDeliveryFeeClamped(t *testing.T) {
	svc := newTestService(newFakeOrders())

	o, err := svc.Create(context.Background(), CreateRequest{
		Items:       []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}},
		DeliveryFee: dec("-5"),
	})
	require.NoError(t, err)

	assert.True(t, o.DeliveryFee.IsZero())
	assert.True(t, o.Total.Equal(o.ItemsTotal))
}

func TestCreate_IdempotentResubmission(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	req := CreateRequest{
		ClientID:       "client-1",
		Items:          []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}},
		IdempotencyKey: "key-abc",
	}

	first, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, orders.createN, "resubmission must not insert again")
}

func TestCreate_IdempotencyKeyRequiresOwner(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	// Two shoppers with no client or customer id would otherwise fall into
	// one shared key space, and the second would be handed the first's order.
	_, err := svc.Create(context.Background(), CreateRequest{
		Phone:          "111",
		Items:          []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}},
		IdempotencyKey: "retry-token",
	})

	assert.ErrorIs(t, err, ErrNoIdempotencyOwner)
	assert.Zero(t, orders.createN, "nothing must be persisted")
}

func TestCreate_IdempotencyScopedToOwner(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	items := []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}}

	a, err := svc.Create(context.Background(), CreateRequest{ClientID: "client-a", Items: items, IdempotencyKey: "shared"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), CreateRequest{ClientID: "client-b", Items: items, IdempotencyKey: "shared"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "same key under different owners is two orders")
}

func TestCreate_ConcurrentDuplicateResolvedViaConstraint(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	// The winner commits between our pre-check and insert: the pre-check
	// misses, the insert hits the unique constraint, and the re-fetch must
	// return the winner's order.
	hash := HashIdempotencyKey("client-1", "key-abc")
	orders.byHash[hash] = &Order{ID: "winner", IdempotencyKeyHash: hash}
	orders.missFirst = true
	orders.createErr = ErrDuplicateIdempotencyKey

	got, err := svc.Create(context.Background(), CreateRequest{
		ClientID:       "client-1",
		Items:          []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}},
		IdempotencyKey: "key-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "winner", got.ID)
}

func TestCreate_NoIdempotencyKeyAlwaysInserts(t *testing.T) {
	orders := newFakeOrders()
	svc := newTestService(orders)

	req := CreateRequest{Items: []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}}}

	a, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, orders.createN)
}

func TestUpdateStatus(t *testing.T) {
	orders := newFakeOrders()
	orders.byID["o1"] = &Order{ID: "o1", Status: StatusNew}
	svc := newTestService(orders)

	o, err := svc.UpdateStatus(context.Background(), "o1", StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	o, err = svc.UpdateStatus(context.Background(), "o1", StatusDone)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, o.Status)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	orders := newFakeOrders()
	orders.byID["o1"] = &Order{ID: "o1", Status: StatusDone}
	svc := newTestService(orders)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusProcessing)

	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusDone, terr.From)
	assert.Equal(t, StatusProcessing, terr.To)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc := newTestService(newFakeOrders())

	_, err := svc.UpdateStatus(context.Background(), "ghost", StatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreate_WrapsPricerError(t *testing.T) {
	failing := &failingPricer{err: errors.New("pricing backend down")}
	svc := NewService(
		&fakeCatalog{products: map[string]*catalog.Product{"p1": testProduct()}},
		failing,
		newFakeOrders(),
	)

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: "p1", SKU: "SKU-1", Quantity: 1}},
	})
	assert.Error(t, err)
}

type failingPricer struct{ err error }

func (p *failingPricer) ComputePrice(context.Context, discount.Context) (discount.Quote, error) {
	return discount.Quote{}, p.err
}
