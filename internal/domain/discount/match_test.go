package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		d    Discount
		want bool
	}{
		{"inactive never matches", Discount{IsActive: false}, false},
		{"no bounds", Discount{IsActive: true}, true},
		{"inside both bounds", Discount{IsActive: true, StartsAt: &before, EndsAt: &after}, true},
		{"starts in the future", Discount{IsActive: true, StartsAt: &after}, false},
		{"already ended", Discount{IsActive: true, EndsAt: &before}, false},
		{"starts exactly now", Discount{IsActive: true, StartsAt: &now}, true},
		{"ends exactly now", Discount{IsActive: true, EndsAt: &now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.InWindow(now))
		})
	}
}

func TestMatches(t *testing.T) {
	ctx := Context{
		ProductID:      "p1",
		CategoryIDs:    []string{"restorative", "promo"},
		ManufacturerID: "m1",
		CountryID:      "de",
		Tags:           []string{"clearance"},
	}

	tests := []struct {
		name string
		d    Discount
		ctx  Context
		want bool
	}{
		{"all scopes empty matches everything", Discount{}, ctx, true},
		{"product scope hit", Discount{ProductIDs: []string{"p1", "p2"}}, ctx, true},
		{"product scope miss", Discount{ProductIDs: []string{"p9"}}, ctx, false},
		{"category intersects", Discount{CategoryIDs: []string{"promo"}}, ctx, true},
		{"category disjoint", Discount{CategoryIDs: []string{"surgical"}}, ctx, false},
		{"manufacturer hit", Discount{ManufacturerIDs: []string{"m1"}}, ctx, true},
		{"manufacturer miss", Discount{ManufacturerIDs: []string{"m2"}}, ctx, false},
		{"country hit", Discount{CountryIDs: []string{"de", "fr"}}, ctx, true},
		{"country miss", Discount{CountryIDs: []string{"us"}}, ctx, false},
		{"tag hit", Discount{Tags: []string{"clearance"}}, ctx, true},
		{"tag miss", Discount{Tags: []string{"vip"}}, ctx, false},
		{
			"dimensions AND together",
			Discount{ProductIDs: []string{"p1"}, CountryIDs: []string{"us"}},
			ctx,
			false,
		},
		{
			"scoped manufacturer rejects context without one",
			Discount{ManufacturerIDs: []string{"m1"}},
			Context{ProductID: "p1"},
			false,
		},
		{
			"open manufacturer accepts context without one",
			Discount{ProductIDs: []string{"p1"}},
			Context{ProductID: "p1"},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Matches(tt.ctx))
		})
	}
}
