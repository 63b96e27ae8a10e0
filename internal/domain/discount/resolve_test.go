package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyOne(t *testing.T) {
	tests := []struct {
		name  string
		price string
		typ   Type
		value string
		want  string
	}{
		{"percent basic", "100", TypePercent, "10", "90"},
		{"percent rounds half away from zero", "19.99", TypePercent, "15", "16.99"},
		{"percent over 100 clamps to free", "100", TypePercent, "150", "0"},
		{"percent negative clamps to no-op", "100", TypePercent, "-5", "100"},
		{"fixed basic", "100", TypeFixed, "25", "75"},
		{"fixed exceeding price floors at zero", "50", TypeFixed, "70", "0"},
		{"fixed negative clamps to no-op", "50", TypeFixed, "-3", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyOne(dec(tt.price), tt.typ, dec(tt.value))
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestResolve_NoCandidates(t *testing.T) {
	q := Resolve(dec("42.50"), nil)

	assert.True(t, q.PriceFinal.Equal(dec("42.50")))
	assert.Empty(t, q.Applied)
}

func TestResolve_NonStackableBestWins(t *testing.T) {
	candidates := []Discount{
		{ID: "a", Name: "ten percent", Type: TypePercent, Value: dec("10")},
		{ID: "b", Name: "twenty off", Type: TypeFixed, Value: dec("20")},
	}

	q := Resolve(dec("100"), candidates)

	// Both compete against the base price; fixed 20 beats 10%.
	require.Len(t, q.Applied, 1)
	assert.Equal(t, "b", q.Applied[0].DiscountID)
	assert.True(t, q.PriceFinal.Equal(dec("80")))
	assert.True(t, q.Applied[0].PriceBefore.Equal(dec("100")))
	assert.True(t, q.Applied[0].PriceAfter.Equal(dec("80")))
}

func TestResolve_NonStackableTieBreak(t *testing.T) {
	// Equal outcomes: the earlier candidate (lower priority) wins.
	candidates := []Discount{
		{ID: "first", Type: TypePercent, Value: dec("10"), Priority: 1},
		{ID: "second", Type: TypeFixed, Value: dec("10"), Priority: 2},
	}

	q := Resolve(dec("100"), candidates)

	require.Len(t, q.Applied, 1)
	assert.Equal(t, "first", q.Applied[0].DiscountID)
	assert.True(t, q.PriceFinal.Equal(dec("90")))
}

func TestResolve_StackablesCompound(t *testing.T) {
	candidates := []Discount{
		{ID: "a", Type: TypePercent, Value: dec("10"), Stackable: true},
		{ID: "b", Type: TypeFixed, Value: dec("10"), Stackable: true},
	}

	q := Resolve(dec("200"), candidates)

	// 200 -> 180 -> 170, each step on the running price.
	require.Len(t, q.Applied, 2)
	assert.True(t, q.Applied[0].PriceAfter.Equal(dec("180")))
	assert.True(t, q.Applied[1].PriceAfter.Equal(dec("170")))
	assert.True(t, q.PriceFinal.Equal(dec("170")))
}

func TestResolve_NonStackableThenStackables(t *testing.T) {
	candidates := []Discount{
		{ID: "season", Type: TypePercent, Value: dec("20")},
		{ID: "loyal", Type: TypeFixed, Value: dec("50"), Stackable: true},
	}

	q := Resolve(dec("480"), candidates)

	// 480 -> 384 (20% off) -> 334 (50 off the running price).
	require.Len(t, q.Applied, 2)
	assert.Equal(t, "season", q.Applied[0].DiscountID)
	assert.True(t, q.Applied[0].PriceAfter.Equal(dec("384")))
	assert.Equal(t, "loyal", q.Applied[1].DiscountID)
	assert.True(t, q.Applied[1].PriceBefore.Equal(dec("384")))
	assert.True(t, q.PriceFinal.Equal(dec("334")))
}

func TestResolve_NoOpStackableDropped(t *testing.T) {
	candidates := []Discount{
		{ID: "zero", Type: TypePercent, Value: dec("0"), Stackable: true},
		{ID: "real", Type: TypePercent, Value: dec("5"), Stackable: true},
	}

	q := Resolve(dec("100"), candidates)

	// A step that does not strictly lower the price leaves no trace.
	require.Len(t, q.Applied, 1)
	assert.Equal(t, "real", q.Applied[0].DiscountID)
	assert.True(t, q.PriceFinal.Equal(dec("95")))
}

func TestResolve_StackableOnFreePriceDropped(t *testing.T) {
	candidates := []Discount{
		{ID: "full", Type: TypePercent, Value: dec("100")},
		{ID: "extra", Type: TypeFixed, Value: dec("5"), Stackable: true},
	}

	q := Resolve(dec("60"), candidates)

	require.Len(t, q.Applied, 1)
	assert.Equal(t, "full", q.Applied[0].DiscountID)
	assert.True(t, q.PriceFinal.IsZero())
}

func TestResolve_IntermediateRounding(t *testing.T) {
	// Each step rounds to 2 decimals before the next applies.
	candidates := []Discount{
		{ID: "a", Type: TypePercent, Value: dec("33"), Stackable: true},
		{ID: "b", Type: TypePercent, Value: dec("33"), Stackable: true},
	}

	q := Resolve(dec("9.99"), candidates)

	// 9.99 * 0.67 = 6.6933 -> 6.69; 6.69 * 0.67 = 4.4823 -> 4.48.
	require.Len(t, q.Applied, 2)
	assert.True(t, q.Applied[0].PriceAfter.Equal(dec("6.69")))
	assert.True(t, q.PriceFinal.Equal(dec("4.48")))
}
