// Command feed-ingest imports supplier price feeds. Feeds are large gzipped
// CSV files of "sku,price" lines, one file per supplier. A price is only
// trusted when at least two suppliers list the SKU; the lowest offered price
// wins. Matching products get the variant price updated and their
// aggregates recomputed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/storage/postgres"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 5_000_000
)

// offer is a candidate price for a SKU, with a bitmask of the feeds that
// listed it.
type offer struct {
	price decimal.Decimal
	feeds uint
}

func main() {
	var (
		dataDir     string
		numFeeds    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing feedN.gz files")
	flag.IntVar(&numFeeds, "feeds", 3, "number of supplier feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, numFeeds, databaseURL); err != nil {
		slog.Error("feed ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("feed ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numFeeds int, databaseURL string) error {
	files := make([]string, numFeeds)
	for i := range numFeeds {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("feed%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: one bloom filter of SKUs per feed, built concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect offers for SKUs that other feeds also list.
	slog.Info("pass 2: collecting corroborated offers")

	offers, err := collectOffers(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect offers")
	}

	slog.Info("corroborated offers found", slog.Int("count", len(offers)))

	if len(offers) == 0 {
		slog.Info("no offers to apply")
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return applyOffers(ctx, postgres.NewProductRepository(pool), offers)
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamFeed(ctx, f, func(sku string, _ decimal.Decimal) {
				filter.AddString(sku)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("feed", i+1), slog.Uint64("lines", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for feed %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("feed", i+1), slog.Uint64("lines", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// collectOffers re-streams each feed and keeps SKUs that appear in at least
// one OTHER feed's bloom filter. Results merge into a single map holding the
// lowest price and the set of feeds that listed the SKU.
func collectOffers(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]offer, error) {
	perFeed := make([]map[string]offer, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]offer)
			feedBit := uint(1) << uint(i)

			err := streamFeed(ctx, f, func(sku string, price decimal.Decimal) {
				for j, filter := range filters {
					if j == i {
						continue
					}
					if filter.TestString(sku) {
						o, ok := candidates[sku]
						if !ok || price.LessThan(o.price) {
							o.price = price
						}
						o.feeds |= feedBit
						candidates[sku] = o
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan feed %d", i+1)
			}

			slog.Info("pass 2 complete", slog.Int("feed", i+1), slog.Int("candidates", len(candidates)))
			perFeed[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]offer)
	for _, candidates := range perFeed {
		for sku, o := range candidates {
			m, ok := merged[sku]
			if !ok || o.price.LessThan(m.price) {
				m.price = o.price
			}
			m.feeds |= o.feeds
			merged[sku] = m
		}
	}

	// Corroboration: the SKU must come from two or more distinct feeds.
	for sku, o := range merged {
		if bits.OnesCount(o.feeds) < 2 {
			delete(merged, sku)
		}
	}
	return merged, nil
}

// applyOffers updates variant prices for every offer whose SKU exists in the
// catalog. Unknown SKUs are skipped; the feed covers far more than we sell.
func applyOffers(ctx context.Context, repo *postgres.ProductRepository, offers map[string]offer) error {
	slog.Info("applying offers", slog.Int("count", len(offers)))

	var updated, skipped int
	for sku, o := range offers {
		p, err := repo.FindBySKU(ctx, sku)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				skipped++
				continue
			}
			return errors.Wrapf(err, "find product for sku %s", sku)
		}

		changed := false
		for i := range p.Variants {
			if p.Variants[i].SKU == sku && !p.Variants[i].Price.Equal(o.price) {
				p.Variants[i].Price = o.price
				changed = true
			}
		}
		if !changed {
			continue
		}

		catalog.RecomputeAggregates(p)
		p.UpdatedAt = time.Now().UTC()
		if err := repo.Update(ctx, p); err != nil {
			return errors.Wrapf(err, "update product %s", p.ID)
		}
		updated++

		if updated%100 == 0 {
			slog.Info("apply progress", slog.Int("updated", updated))
		}
	}

	slog.Info("offers applied", slog.Int("updated", updated), slog.Int("skipped", skipped))
	return nil
}

// streamFeed opens a gzipped feed and calls fn for each well-formed
// "sku,price" line. Malformed lines are skipped.
func streamFeed(ctx context.Context, path string, fn func(sku string, price decimal.Decimal)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sku, rawPrice, ok := strings.Cut(scanner.Text(), ",")
		if !ok || sku == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
		if err != nil || price.IsNegative() {
			continue
		}
		fn(strings.TrimSpace(sku), price)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
