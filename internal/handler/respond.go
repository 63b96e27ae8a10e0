package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
	"github.com/dentokart/dentokart/internal/domain/order"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body; the cause goes to the log, not
// the client.
func respondDomainError(c *gin.Context, err error) {
	var (
		invalidQty   *order.InvalidQuantityError
		invalidVar   *order.InvalidVariantError
		invalidTrans *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "product not found")
	case errors.Is(err, discount.ErrNotFound):
		respondError(c, http.StatusNotFound, "discount not found")
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrEmptyItems):
		respondError(c, http.StatusBadRequest, "order must contain at least one item")
	case errors.Is(err, order.ErrNoIdempotencyOwner):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidQty):
		respondError(c, http.StatusBadRequest, invalidQty.Error())
	case errors.As(err, &invalidVar):
		respondError(c, http.StatusBadRequest, invalidVar.Error())
	case errors.As(err, &invalidTrans):
		respondError(c, http.StatusConflict, invalidTrans.Error())
	default:
		zctx.From(c.Request.Context()).Error("Request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

// appliedDiscountDTO is the wire form of one discount application step.
type appliedDiscountDTO struct {
	DiscountID  string  `json:"discountId"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	PriceBefore float64 `json:"priceBefore"`
	PriceAfter  float64 `json:"priceAfter"`
}

func appliedDTOs(trail []discount.Applied) []appliedDiscountDTO {
	if len(trail) == 0 {
		return nil
	}
	out := make([]appliedDiscountDTO, len(trail))
	for i, a := range trail {
		out[i] = appliedDiscountDTO{
			DiscountID:  a.DiscountID,
			Name:        a.Name,
			Type:        string(a.Type),
			Value:       a.Value.InexactFloat64(),
			PriceBefore: a.PriceBefore.InexactFloat64(),
			PriceAfter:  a.PriceAfter.InexactFloat64(),
		}
	}
	return out
}

// variantDTO carries the stored variant plus the display price computed for
// the current discount state.
type variantDTO struct {
	SKU              string               `json:"sku"`
	ManufacturerID   string               `json:"manufacturerId"`
	CountryID        string               `json:"countryId,omitempty"`
	Options          map[string]string    `json:"options,omitempty"`
	Price            float64              `json:"price"`
	PriceFinal       float64              `json:"priceFinal"`
	DiscountsApplied []appliedDiscountDTO `json:"discountsApplied,omitempty"`
	Unit             string               `json:"unit,omitempty"`
	Images           []string             `json:"images,omitempty"`
	Barcode          string               `json:"barcode,omitempty"`
	IsActive         bool                 `json:"isActive"`
	VariantKey       string               `json:"variantKey,omitempty"`
}

type productDTO struct {
	ID              string              `json:"id"`
	Slug            string              `json:"slug"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	CategoryIDs     []string            `json:"categoryIds,omitempty"`
	Tags            []string            `json:"tags,omitempty"`
	Images          []string            `json:"images,omitempty"`
	Attributes      map[string]string   `json:"attributes,omitempty"`
	Variants        []variantDTO        `json:"variants"`
	ManufacturerIDs []string            `json:"manufacturerIds,omitempty"`
	CountryIDs      []string            `json:"countryIds,omitempty"`
	PriceMin        float64             `json:"priceMin"`
	PriceMax        float64             `json:"priceMax"`
	PriceMinFinal   float64             `json:"priceMinFinal"`
	PriceMaxFinal   float64             `json:"priceMaxFinal"`
	OptionsSummary  map[string][]string `json:"optionsSummary,omitempty"`
	IsActive        bool                `json:"isActive"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type orderItemDTO struct {
	ProductID        string               `json:"productId"`
	SKU              string               `json:"sku"`
	Quantity         int                  `json:"quantity"`
	Price            float64              `json:"price"`
	PriceOriginal    float64              `json:"priceOriginal"`
	Title            string               `json:"title"`
	Options          map[string]string    `json:"options,omitempty"`
	ManufacturerID   string               `json:"manufacturerId,omitempty"`
	CountryID        string               `json:"countryId,omitempty"`
	Unit             string               `json:"unit,omitempty"`
	DiscountsApplied []appliedDiscountDTO `json:"discountsApplied,omitempty"`
}

type orderDTO struct {
	ID          string         `json:"id"`
	Phone       string         `json:"phone,omitempty"`
	Items       []orderItemDTO `json:"items"`
	ItemsTotal  float64        `json:"itemsTotal"`
	DeliveryFee float64        `json:"deliveryFee"`
	Total       float64        `json:"total"`
	Status      string         `json:"status"`
	Name        string         `json:"name,omitempty"`
	Comment     string         `json:"comment,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func orderDTOFrom(o *order.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{
			ProductID:        it.ProductID,
			SKU:              it.SKU,
			Quantity:         it.Quantity,
			Price:            it.Price.InexactFloat64(),
			PriceOriginal:    it.PriceOriginal.InexactFloat64(),
			Title:            it.Title,
			Options:          it.Options,
			ManufacturerID:   it.ManufacturerID,
			CountryID:        it.CountryID,
			Unit:             it.Unit,
			DiscountsApplied: appliedDTOs(it.DiscountsApplied),
		}
	}
	return orderDTO{
		ID:          o.ID,
		Phone:       o.Phone,
		Items:       items,
		ItemsTotal:  o.ItemsTotal.InexactFloat64(),
		DeliveryFee: o.DeliveryFee.InexactFloat64(),
		Total:       o.Total.InexactFloat64(),
		Status:      string(o.Status),
		Name:        o.Name,
		Comment:     o.Comment,
		CreatedAt:   o.CreatedAt,
	}
}

type discountDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Type            string     `json:"type"`
	Value           float64    `json:"value"`
	IsActive        bool       `json:"isActive"`
	StartsAt        *time.Time `json:"startsAt,omitempty"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	Priority        int        `json:"priority"`
	Stackable       bool       `json:"stackable"`
	ProductIDs      []string   `json:"productIds,omitempty"`
	CategoryIDs     []string   `json:"categoryIds,omitempty"`
	ManufacturerIDs []string   `json:"manufacturerIds,omitempty"`
	CountryIDs      []string   `json:"countryIds,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func discountDTOFrom(d *discount.Discount) discountDTO {
	return discountDTO{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		Type:            string(d.Type),
		Value:           d.Value.InexactFloat64(),
		IsActive:        d.IsActive,
		StartsAt:        d.StartsAt,
		EndsAt:          d.EndsAt,
		Priority:        d.Priority,
		Stackable:       d.Stackable,
		ProductIDs:      d.ProductIDs,
		CategoryIDs:     d.CategoryIDs,
		ManufacturerIDs: d.ManufacturerIDs,
		CountryIDs:      d.CountryIDs,
		Tags:            d.Tags,
		CreatedAt:       d.CreatedAt,
	}
}
