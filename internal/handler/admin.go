package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
	"github.com/dentokart/dentokart/internal/domain/order"
)

// ListDiscounts handles GET /api/admin/discounts.
func (h *Handler) ListDiscounts(c *gin.Context) {
	discounts, err := h.discounts.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	items := make([]discountDTO, len(discounts))
	for i := range discounts {
		items[i] = discountDTOFrom(&discounts[i])
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createDiscountRequest struct {
	Name            string     `json:"name" binding:"required"`
	Description     string     `json:"description"`
	Type            string     `json:"type" binding:"required,oneof=percent fixed"`
	Value           float64    `json:"value" binding:"gte=0"`
	IsActive        *bool      `json:"isActive"`
	StartsAt        *time.Time `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt"`
	Priority        int        `json:"priority"`
	Stackable       bool       `json:"stackable"`
	ProductIDs      []string   `json:"productIds"`
	CategoryIDs     []string   `json:"categoryIds"`
	ManufacturerIDs []string   `json:"manufacturerIds"`
	CountryIDs      []string   `json:"countryIds"`
	Tags            []string   `json:"tags"`
}

// CreateDiscount handles POST /api/admin/discounts.
func (h *Handler) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == string(discount.TypePercent) && req.Value > 100 {
		respondError(c, http.StatusBadRequest, "percent value must not exceed 100")
		return
	}

	d := &discount.Discount{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Description:     req.Description,
		Type:            discount.Type(req.Type),
		Value:           decimal.NewFromFloat(req.Value),
		IsActive:        req.IsActive == nil || *req.IsActive,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		Priority:        req.Priority,
		Stackable:       req.Stackable,
		ProductIDs:      req.ProductIDs,
		CategoryIDs:     req.CategoryIDs,
		ManufacturerIDs: req.ManufacturerIDs,
		CountryIDs:      req.CountryIDs,
		Tags:            req.Tags,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.discounts.Create(c.Request.Context(), d); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, discountDTOFrom(d))
}

type updateDiscountRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	Type            *string    `json:"type" binding:"omitempty,oneof=percent fixed"`
	Value           *float64   `json:"value" binding:"omitempty,gte=0"`
	IsActive        *bool      `json:"isActive"`
	StartsAt        *time.Time `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt"`
	Priority        *int       `json:"priority"`
	Stackable       *bool      `json:"stackable"`
	ProductIDs      []string   `json:"productIds"`
	CategoryIDs     []string   `json:"categoryIds"`
	ManufacturerIDs []string   `json:"manufacturerIds"`
	CountryIDs      []string   `json:"countryIds"`
	Tags            []string   `json:"tags"`
}

// UpdateDiscount handles PATCH /api/admin/discounts/:id. Absent fields keep
// their stored value; scope slices replace wholesale when present.
func (h *Handler) UpdateDiscount(c *gin.Context) {
	var req updateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.discounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Type != nil {
		d.Type = discount.Type(*req.Type)
	}
	if req.Value != nil {
		d.Value = decimal.NewFromFloat(*req.Value)
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if req.StartsAt != nil {
		d.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		d.EndsAt = req.EndsAt
	}
	if req.Priority != nil {
		d.Priority = *req.Priority
	}
	if req.Stackable != nil {
		d.Stackable = *req.Stackable
	}
	if req.ProductIDs != nil {
		d.ProductIDs = req.ProductIDs
	}
	if req.CategoryIDs != nil {
		d.CategoryIDs = req.CategoryIDs
	}
	if req.ManufacturerIDs != nil {
		d.ManufacturerIDs = req.ManufacturerIDs
	}
	if req.CountryIDs != nil {
		d.CountryIDs = req.CountryIDs
	}
	if req.Tags != nil {
		d.Tags = req.Tags
	}

	if d.Type == discount.TypePercent && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		respondError(c, http.StatusBadRequest, "percent value must not exceed 100")
		return
	}

	if err := h.discounts.Update(c.Request.Context(), d); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, discountDTOFrom(d))
}

// DeleteDiscount handles DELETE /api/admin/discounts/:id.
func (h *Handler) DeleteDiscount(c *gin.Context) {
	if err := h.discounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type variantRequest struct {
	SKU            string            `json:"sku" binding:"required"`
	ManufacturerID string            `json:"manufacturerId" binding:"required"`
	CountryID      string            `json:"countryId"`
	Options        map[string]string `json:"options"`
	Price          float64           `json:"price" binding:"gte=0"`
	Unit           string            `json:"unit"`
	Images         []string          `json:"images"`
	Barcode        string            `json:"barcode"`
	IsActive       *bool             `json:"isActive"`
}

type productRequest struct {
	Slug        string            `json:"slug" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	CategoryIDs []string          `json:"categoryIds"`
	Tags        []string          `json:"tags"`
	Images      []string          `json:"images"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []variantRequest  `json:"variants" binding:"required,min=1,dive"`
	IsActive    *bool             `json:"isActive"`
}

func (req *productRequest) toProduct(id string) *catalog.Product {
	variants := make([]catalog.Variant, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = catalog.Variant{
			SKU:            v.SKU,
			ManufacturerID: v.ManufacturerID,
			CountryID:      v.CountryID,
			Options:        v.Options,
			Price:          decimal.NewFromFloat(v.Price),
			Unit:           v.Unit,
			Images:         v.Images,
			Barcode:        v.Barcode,
			IsActive:       v.IsActive == nil || *v.IsActive,
		}
	}
	return &catalog.Product{
		ID:          id,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		CategoryIDs: req.CategoryIDs,
		Tags:        req.Tags,
		Images:      req.Images,
		Attributes:  req.Attributes,
		Variants:    variants,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
}

// CreateProduct handles POST /api/admin/products. Aggregates are recomputed
// from the submitted variants before the product is persisted.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	p := req.toProduct(uuid.New().String())
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	catalog.RecomputeAggregates(p)

	if err := h.products.Create(c.Request.Context(), p); err != nil {
		respondDomainError(c, err)
		return
	}

	dto, err := h.priceProduct(c.Request.Context(), p)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// UpdateProduct handles PUT /api/admin/products/:id. The submitted document
// replaces the stored one; aggregates are recomputed before persisting.
func (h *Handler) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	p := req.toProduct(c.Param("id"))
	p.UpdatedAt = time.Now().UTC()
	catalog.RecomputeAggregates(p)

	if err := h.products.Update(c.Request.Context(), p); err != nil {
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

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new processing done cancelled"`
}

// UpdateOrderStatus handles PATCH /api/admin/orders/:id/status. Disallowed
// transitions come back as 409.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), order.Status(req.Status))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderDTOFrom(o))
}
