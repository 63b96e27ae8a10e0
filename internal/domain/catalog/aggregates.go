package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RecomputeAggregates refreshes the denormalized fields derived from active
// variants: per-variant keys, the manufacturer/country id sets, the price
// range, and the options summary. The admin write path calls this before
// every persist; it is deliberately an explicit function rather than a
// storage hook so the derivation is testable on its own.
func RecomputeAggregates(p *Product) {
	var active []*Variant
	for i := range p.Variants {
		if p.Variants[i].IsActive {
			active = append(active, &p.Variants[i])
		}
	}

	for _, v := range active {
		v.VariantKey = variantKey(v)
	}

	p.ManufacturerIDs = p.ManufacturerIDs[:0]
	p.CountryIDs = p.CountryIDs[:0]
	seenMan := map[string]bool{}
	seenCtry := map[string]bool{}
	for _, v := range active {
		if v.ManufacturerID != "" && !seenMan[v.ManufacturerID] {
			seenMan[v.ManufacturerID] = true
			p.ManufacturerIDs = append(p.ManufacturerIDs, v.ManufacturerID)
		}
		if v.CountryID != "" && !seenCtry[v.CountryID] {
			seenCtry[v.CountryID] = true
			p.CountryIDs = append(p.CountryIDs, v.CountryID)
		}
	}

	p.PriceMin, p.PriceMax = priceRange(active)
	p.OptionsSummary = optionsSummary(active)
}

// variantKey is a stable identity for a variant configuration:
// manufacturer:country:k=v|k=v with option keys sorted.
func variantKey(v *Variant) string {
	keys := make([]string, 0, len(v.Options))
	for k := range v.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+v.Options[k])
	}
	return v.ManufacturerID + ":" + v.CountryID + ":" + strings.Join(parts, "|")
}

func priceRange(active []*Variant) (min, max decimal.Decimal) {
	if len(active) == 0 {
		return decimal.Zero, decimal.Zero
	}
	min, max = active[0].Price, active[0].Price
	for _, v := range active[1:] {
		if v.Price.LessThan(min) {
			min = v.Price
		}
		if v.Price.GreaterThan(max) {
			max = v.Price
		}
	}
	return min, max
}

func optionsSummary(active []*Variant) map[string][]string {
	summary := make(map[string][]string)
	for _, v := range active {
		for k, val := range v.Options {
			if !contains(summary[k], val) {
				summary[k] = append(summary[k], val)
			}
		}
	}
	return summary
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
