package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Service is the pricing facade. Both the product read path (display
// prices) and the order creation path (committed prices) go through
// ComputePrice so the two can never disagree.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// FindActiveForContext returns the discounts applicable to the context
// right now, in application order. The repository narrows to enabled,
// in-window rules; the window is re-checked here so a looser repository
// cannot leak an expired rule, and scope targeting is evaluated in memory.
func (s *Service) FindActiveForContext(ctx context.Context, pctx Context) ([]Discount, error) {
	now := s.now()
	candidates, err := s.repo.ListActive(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}

	matched := candidates[:0:0]
	for _, d := range candidates {
		if d.InWindow(now) && d.Matches(pctx) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// ComputePrice prices the context: match, resolve stacking, return the
// final price with its audit trail. Pure arithmetic past the repository
// read; it cannot fail on discount data, only on I/O.
func (s *Service) ComputePrice(ctx context.Context, pctx Context) (Quote, error) {
	matched, err := s.FindActiveForContext(ctx, pctx)
	if err != nil {
		return Quote{}, err
	}
	return Resolve(pctx.Price, matched), nil
}
