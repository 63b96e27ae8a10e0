package discount

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// ApplyOne applies a single discount to a price. Malformed values are
// clamped rather than rejected: percent to [0,100], fixed to >= 0. The
// result is floored at zero and rounded half-away-from-zero to 2 decimal
// places. Rounding here, at each step, is load-bearing: stacked discounts
// compound on already-rounded intermediate values.
func ApplyOne(price decimal.Decimal, typ Type, value decimal.Decimal) decimal.Decimal {
	var result decimal.Decimal
	switch typ {
	case TypePercent:
		pct := clamp(value, decimal.Zero, hundred)
		result = price.Mul(hundred.Sub(pct)).Div(hundred)
	default: // TypeFixed
		result = price.Sub(decimal.Max(value, decimal.Zero))
	}
	if result.IsNegative() {
		result = decimal.Zero
	}
	return result.Round(2)
}

// Resolve computes the final price and audit trail for a base price given
// the matched candidates in matcher order (ascending priority, creation
// time tiebreak).
//
// Non-stackable candidates compete: each is evaluated against the original
// base price and the one yielding the lowest result wins, earlier candidate
// winning ties. Stackable candidates then compound sequentially in matcher
// order on the running price; an application that does not strictly lower
// the price is dropped from the trail and leaves the price untouched.
func Resolve(base decimal.Decimal, candidates []Discount) Quote {
	price := base
	var applied []Applied

	var best *Discount
	bestAfter := decimal.Zero
	for i := range candidates {
		d := &candidates[i]
		if d.Stackable {
			continue
		}
		after := ApplyOne(base, d.Type, d.Value)
		if best == nil || after.LessThan(bestAfter) {
			best = d
			bestAfter = after
		}
	}
	if best != nil {
		applied = append(applied, Applied{
			DiscountID:  best.ID,
			Name:        best.Name,
			Type:        best.Type,
			Value:       best.Value,
			PriceBefore: price,
			PriceAfter:  bestAfter,
		})
		price = bestAfter
	}

	for i := range candidates {
		d := &candidates[i]
		if !d.Stackable {
			continue
		}
		after := ApplyOne(price, d.Type, d.Value)
		if !after.LessThan(price) {
			continue
		}
		applied = append(applied, Applied{
			DiscountID:  d.ID,
			Name:        d.Name,
			Type:        d.Type,
			Value:       d.Value,
			PriceBefore: price,
			PriceAfter:  after,
		})
		price = after
	}

	return Quote{PriceFinal: price, Applied: applied}
}
