// Command seed-db loads catalog products, discount rules, and an admin API
// key into the database. Safe to re-run: existing rows are overwritten.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
	"github.com/dentokart/dentokart/internal/handler/auth"
	"github.com/dentokart/dentokart/internal/storage/postgres"
)

type variantJSON struct {
	SKU            string            `json:"sku"`
	ManufacturerID string            `json:"manufacturerId"`
	CountryID      string            `json:"countryId"`
	Options        map[string]string `json:"options"`
	Price          decimal.Decimal   `json:"price"`
	Unit           string            `json:"unit"`
	Images         []string          `json:"images"`
	Barcode        string            `json:"barcode"`
}

type productJSON struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CategoryIDs []string          `json:"categoryIds"`
	Tags        []string          `json:"tags"`
	Images      []string          `json:"images"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []variantJSON     `json:"variants"`
}

type discountJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Type            string          `json:"type"`
	Value           decimal.Decimal `json:"value"`
	StartsAt        *time.Time      `json:"startsAt"`
	EndsAt          *time.Time      `json:"endsAt"`
	Priority        int             `json:"priority"`
	Stackable       bool            `json:"stackable"`
	ProductIDs      []string        `json:"productIds"`
	CategoryIDs     []string        `json:"categoryIds"`
	ManufacturerIDs []string        `json:"manufacturerIds"`
	CountryIDs      []string        `json:"countryIds"`
	Tags            []string        `json:"tags"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		discountsFile string
		apiKey        string
		apiKeyPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&discountsFile, "discounts-file", "db/seed/discounts.json", "path to discounts JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or DENTOKART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or DENTOKART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("DENTOKART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or DENTOKART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("DENTOKART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, discountsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, discountsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool), discountsFile); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	slog.Info("reading products file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	now := time.Now().UTC()
	for _, pj := range products {
		p := &catalog.Product{
			ID:          pj.ID,
			Slug:        pj.Slug,
			Title:       pj.Title,
			Description: pj.Description,
			CategoryIDs: pj.CategoryIDs,
			Tags:        pj.Tags,
			Images:      pj.Images,
			Attributes:  pj.Attributes,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		for _, vj := range pj.Variants {
			p.Variants = append(p.Variants, catalog.Variant{
				SKU:            vj.SKU,
				ManufacturerID: vj.ManufacturerID,
				CountryID:      vj.CountryID,
				Options:        vj.Options,
				Price:          vj.Price,
				Unit:           vj.Unit,
				Images:         vj.Images,
				Barcode:        vj.Barcode,
				IsActive:       true,
			})
		}
		catalog.RecomputeAggregates(p)

		// Update first so re-seeding refreshes existing rows.
		switch err := repo.Update(ctx, p); {
		case err == nil:
		case errors.Is(err, catalog.ErrProductNotFound):
			if err := repo.Create(ctx, p); err != nil {
				return errors.Wrapf(err, "create product %s", p.ID)
			}
		default:
			return errors.Wrapf(err, "update product %s", p.ID)
		}

		slog.Info("seeded product", slog.String("id", p.ID), slog.String("title", p.Title))
	}

	return nil
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository, path string) error {
	slog.Info("reading discounts file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read discounts file")
	}

	var discounts []discountJSON
	if err := json.Unmarshal(data, &discounts); err != nil {
		return errors.Wrap(err, "parse discounts JSON")
	}

	slog.Info("seeding discounts", slog.Int("count", len(discounts)))

	for _, dj := range discounts {
		d := &discount.Discount{
			ID:              dj.ID,
			Name:            dj.Name,
			Description:     dj.Description,
			Type:            discount.Type(dj.Type),
			Value:           dj.Value,
			IsActive:        true,
			StartsAt:        dj.StartsAt,
			EndsAt:          dj.EndsAt,
			Priority:        dj.Priority,
			Stackable:       dj.Stackable,
			ProductIDs:      dj.ProductIDs,
			CategoryIDs:     dj.CategoryIDs,
			ManufacturerIDs: dj.ManufacturerIDs,
			CountryIDs:      dj.CountryIDs,
			Tags:            dj.Tags,
			CreatedAt:       time.Now().UTC(),
		}
		if d.ID == "" {
			d.ID = uuid.New().String()
		}

		switch err := repo.Update(ctx, d); {
		case err == nil:
		case errors.Is(err, discount.ErrNotFound):
			if err := repo.Create(ctx, d); err != nil {
				return errors.Wrapf(err, "create discount %s", d.ID)
			}
		default:
			return errors.Wrapf(err, "update discount %s", d.ID)
		}

		slog.Info("seeded discount", slog.String("id", d.ID), slog.String("name", d.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{"admin"},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("seeded API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
