package discount

import "time"

// InWindow reports whether the discount is enabled and its validity window
// contains the given instant. Both bounds are inclusive; an absent bound is
// unbounded in that direction.
func (d *Discount) InWindow(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return false
	}
	if d.EndsAt != nil && d.EndsAt.Before(now) {
		return false
	}
	return true
}

// Matches reports whether the discount's targeting scopes admit the context.
// Each dimension is checked independently and combined with AND. An empty
// scope slice matches everything for that dimension; for the manufacturer
// and country dimensions, a context without a value only matches discounts
// that leave the dimension open.
func (d *Discount) Matches(ctx Context) bool {
	if !containsOrEmpty(d.ProductIDs, ctx.ProductID) {
		return false
	}
	if !intersectsOrEmpty(d.CategoryIDs, ctx.CategoryIDs) {
		return false
	}
	if !scalarMatch(d.ManufacturerIDs, ctx.ManufacturerID) {
		return false
	}
	if !scalarMatch(d.CountryIDs, ctx.CountryID) {
		return false
	}
	return intersectsOrEmpty(d.Tags, ctx.Tags)
}

// containsOrEmpty reports whether scope is empty or contains v.
func containsOrEmpty(scope []string, v string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == v {
			return true
		}
	}
	return false
}

// intersectsOrEmpty reports whether scope is empty or shares at least one
// element with values.
func intersectsOrEmpty(scope, values []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		for _, v := range values {
			if s == v {
				return true
			}
		}
	}
	return false
}

// scalarMatch handles the manufacturer/country dimensions: an empty scope
// always matches, and a scoped discount matches only when the context
// supplies a value contained in the scope.
func scalarMatch(scope []string, v string) bool {
	if len(scope) == 0 {
		return true
	}
	if v == "" {
		return false
	}
	return containsOrEmpty(scope, v)
}
