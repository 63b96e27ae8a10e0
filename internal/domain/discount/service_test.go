package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo returns a fixed candidate slice, recording the instant requested.
type stubRepo struct {
	discounts []Discount
	err       error
	askedAt   time.Time
}

func (r *stubRepo) ListActive(_ context.Context, now time.Time) ([]Discount, error) {
	r.askedAt = now
	return r.discounts, r.err
}

func TestFindActiveForContext_FiltersByScope(t *testing.T) {
	repo := &stubRepo{discounts: []Discount{
		{ID: "universal", IsActive: true},
		{ID: "scoped", IsActive: true, ProductIDs: []string{"p1"}},
		{ID: "other", IsActive: true, ProductIDs: []string{"p2"}},
	}}
	svc := NewService(repo)

	matched, err := svc.FindActiveForContext(context.Background(), Context{ProductID: "p1"})
	require.NoError(t, err)

	require.Len(t, matched, 2)
	assert.Equal(t, "universal", matched[0].ID)
	assert.Equal(t, "scoped", matched[1].ID)
}

func TestFindActiveForContext_RechecksWindow(t *testing.T) {
	// The repository contract is to narrow to enabled, in-window rows, but a
	// looser implementation must not leak expired or disabled rules through
	// the facade.
	frozen := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	past := frozen.Add(-time.Hour)
	future := frozen.Add(time.Hour)
	repo := &stubRepo{discounts: []Discount{
		{ID: "live", IsActive: true, StartsAt: &past, EndsAt: &future},
		{ID: "expired", IsActive: true, EndsAt: &past},
		{ID: "upcoming", IsActive: true, StartsAt: &future},
		{ID: "disabled"},
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return frozen }

	matched, err := svc.FindActiveForContext(context.Background(), Context{})
	require.NoError(t, err)

	require.Len(t, matched, 1)
	assert.Equal(t, "live", matched[0].ID)
}

func TestFindActiveForContext_UsesInjectedClock(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	frozen := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	_, err := svc.FindActiveForContext(context.Background(), Context{})
	require.NoError(t, err)
	assert.Equal(t, frozen, repo.askedAt)
}

func TestComputePrice_EndToEnd(t *testing.T) {
	repo := &stubRepo{discounts: []Discount{
		{ID: "season", IsActive: true, Type: TypePercent, Value: dec("20"), Priority: 1},
		{ID: "loyal", IsActive: true, Type: TypeFixed, Value: dec("50"), Priority: 2, Stackable: true},
	}}
	svc := NewService(repo)

	quote, err := svc.ComputePrice(context.Background(), Context{Price: dec("480")})
	require.NoError(t, err)

	assert.True(t, quote.PriceFinal.Equal(dec("334")))
	require.Len(t, quote.Applied, 2)
	assert.Equal(t, "season", quote.Applied[0].DiscountID)
	assert.Equal(t, "loyal", quote.Applied[1].DiscountID)
}

func TestComputePrice_RepoError(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	svc := NewService(repo)

	_, err := svc.ComputePrice(context.Background(), Context{Price: dec("10")})
	assert.Error(t, err)
}

func TestComputePrice_NoMatches(t *testing.T) {
	repo := &stubRepo{discounts: []Discount{
		{ID: "scoped", IsActive: true, Type: TypePercent, Value: dec("50"), ProductIDs: []string{"other"}},
	}}
	svc := NewService(repo)

	quote, err := svc.ComputePrice(context.Background(), Context{Price: dec("25"), ProductID: "p1"})
	require.NoError(t, err)

	assert.True(t, quote.PriceFinal.Equal(dec("25")))
	assert.Empty(t, quote.Applied)
}
