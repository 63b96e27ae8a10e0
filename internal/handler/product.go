package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
)

// ListProducts handles GET /api/products. Filters are optional query
// parameters; list-valued ones are comma-separated.
func (h *Handler) ListProducts(c *gin.Context) {
	q := catalog.ListQuery{
		CategoryID:      c.Query("category"),
		ManufacturerIDs: splitParam(c.Query("manufacturers")),
		CountryIDs:      splitParam(c.Query("countries")),
		Tags:            splitParam(c.Query("tags")),
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))

	var err error
	if q.PriceFrom, err = decimalParam(c.Query("priceFrom")); err != nil {
		respondError(c, http.StatusBadRequest, "priceFrom must be a number")
		return
	}
	if q.PriceTo, err = decimalParam(c.Query("priceTo")); err != nil {
		respondError(c, http.StatusBadRequest, "priceTo must be a number")
		return
	}

	products, total, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	q.Clamp()
	items := make([]productDTO, len(products))
	for i := range products {
		dto, err := h.priceProduct(c.Request.Context(), &products[i])
		if err != nil {
			respondDomainError(c, err)
			return
		}
		items[i] = dto
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// GetProduct handles GET /api/products/:idOrSlug.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetActive(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	dto, err := h.priceProduct(c.Request.Context(), p)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// priceProduct builds the response DTO for a product, running every active
// variant through the pricing facade so list prices and order prices come
// from the same computation. Inactive variants are echoed undiscounted.
func (h *Handler) priceProduct(ctx context.Context, p *catalog.Product) (productDTO, error) {
	variants := make([]variantDTO, len(p.Variants))
	var minFinal, maxFinal *decimal.Decimal

	for i := range p.Variants {
		v := &p.Variants[i]
		dto := variantDTO{
			SKU:            v.SKU,
			ManufacturerID: v.ManufacturerID,
			CountryID:      v.CountryID,
			Options:        v.Options,
			Price:          v.Price.InexactFloat64(),
			PriceFinal:     v.Price.InexactFloat64(),
			Unit:           v.Unit,
			Images:         v.Images,
			Barcode:        v.Barcode,
			IsActive:       v.IsActive,
			VariantKey:     v.VariantKey,
		}
		if v.IsActive {
			quote, err := h.pricing.ComputePrice(ctx, discount.Context{
				Price:          v.Price,
				ProductID:      p.ID,
				CategoryIDs:    p.CategoryIDs,
				ManufacturerID: v.ManufacturerID,
				CountryID:      v.CountryID,
				Tags:           p.Tags,
			})
			if err != nil {
				return productDTO{}, err
			}
			dto.PriceFinal = quote.PriceFinal.InexactFloat64()
			dto.DiscountsApplied = appliedDTOs(quote.Applied)

			if minFinal == nil || quote.PriceFinal.LessThan(*minFinal) {
				f := quote.PriceFinal
				minFinal = &f
			}
			if maxFinal == nil || quote.PriceFinal.GreaterThan(*maxFinal) {
				f := quote.PriceFinal
				maxFinal = &f
			}
		}
		variants[i] = dto
	}

	// Products with no active variants fall back to the stored aggregates.
	priceMinFinal := p.PriceMin
	priceMaxFinal := p.PriceMax
	if minFinal != nil {
		priceMinFinal = *minFinal
		priceMaxFinal = *maxFinal
	}

	return productDTO{
		ID:              p.ID,
		Slug:            p.Slug,
		Title:           p.Title,
		Description:     p.Description,
		CategoryIDs:     p.CategoryIDs,
		Tags:            p.Tags,
		Images:          p.Images,
		Attributes:      p.Attributes,
		Variants:        variants,
		ManufacturerIDs: p.ManufacturerIDs,
		CountryIDs:      p.CountryIDs,
		PriceMin:        p.PriceMin.InexactFloat64(),
		PriceMax:        p.PriceMax.InexactFloat64(),
		PriceMinFinal:   priceMinFinal.InexactFloat64(),
		PriceMaxFinal:   priceMaxFinal.InexactFloat64(),
		OptionsSummary:  p.OptionsSummary,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decimalParam(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
