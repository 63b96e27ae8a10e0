package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecomputeAggregates(t *testing.T) {
	p := &Product{
		Variants: []Variant{
			{
				SKU:            "A-1",
				ManufacturerID: "m1",
				CountryID:      "de",
				Options:        map[string]string{"size": "S", "shade": "A2"},
				Price:          decimal.NewFromFloat(12.50),
				IsActive:       true,
			},
			{
				SKU:            "A-2",
				ManufacturerID: "m1",
				CountryID:      "fr",
				Options:        map[string]string{"size": "M"},
				Price:          decimal.NewFromFloat(9.90),
				IsActive:       true,
			},
			{
				SKU:            "A-3",
				ManufacturerID: "m2",
				CountryID:      "us",
				Price:          decimal.NewFromFloat(99),
				IsActive:       false,
			},
		},
	}

	RecomputeAggregates(p)

	// Inactive variants contribute nothing.
	assert.Equal(t, []string{"m1"}, p.ManufacturerIDs)
	assert.Equal(t, []string{"de", "fr"}, p.CountryIDs)
	assert.True(t, p.PriceMin.Equal(decimal.NewFromFloat(9.90)))
	assert.True(t, p.PriceMax.Equal(decimal.NewFromFloat(12.50)))

	assert.ElementsMatch(t, []string{"S", "M"}, p.OptionsSummary["size"])
	assert.Equal(t, []string{"A2"}, p.OptionsSummary["shade"])

	// Option keys sort inside the key, so the order in the map is irrelevant.
	assert.Equal(t, "m1:de:shade=A2|size=S", p.Variants[0].VariantKey)
	assert.Equal(t, "m1:fr:size=M", p.Variants[1].VariantKey)
	assert.Empty(t, p.Variants[2].VariantKey)
}

func TestRecomputeAggregates_NoActiveVariants(t *testing.T) {
	p := &Product{
		ManufacturerIDs: []string{"stale"},
		CountryIDs:      []string{"stale"},
		Variants: []Variant{
			{SKU: "X", ManufacturerID: "m1", Price: decimal.NewFromInt(10), IsActive: false},
		},
	}

	RecomputeAggregates(p)

	assert.Empty(t, p.ManufacturerIDs)
	assert.Empty(t, p.CountryIDs)
	assert.True(t, p.PriceMin.IsZero())
	assert.True(t, p.PriceMax.IsZero())
	assert.Empty(t, p.OptionsSummary)
}

func TestActiveVariant(t *testing.T) {
	p := &Product{
		Variants: []Variant{
			{SKU: "A", IsActive: false},
			{SKU: "B", IsActive: true},
		},
	}

	assert.Nil(t, p.ActiveVariant("A"), "inactive variant is not purchasable")
	assert.Nil(t, p.ActiveVariant("missing"))
	if v := p.ActiveVariant("B"); assert.NotNil(t, v) {
		assert.Equal(t, "B", v.SKU)
	}
}

func TestListQueryClamp(t *testing.T) {
	tests := []struct {
		name            string
		page, limit     int
		wantPage, wantL int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative page", -3, 10, 1, 10},
		{"limit too high", 2, 500, 2, 20},
		{"in range untouched", 3, 50, 3, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ListQuery{Page: tt.page, Limit: tt.limit}
			q.Clamp()
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantL, q.Limit)
		})
	}
}
