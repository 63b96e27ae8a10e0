// Package handler exposes the service over HTTP. Controllers are thin:
// they bind and validate input, delegate to domain services, and map domain
// errors onto status codes.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dentokart/dentokart/internal/domain/catalog"
	"github.com/dentokart/dentokart/internal/domain/discount"
	"github.com/dentokart/dentokart/internal/domain/order"
)

// DiscountStore is the admin CRUD surface over discount rules. Satisfied by
// postgres.DiscountRepository.
type DiscountStore interface {
	List(ctx context.Context) ([]discount.Discount, error)
	Get(ctx context.Context, id string) (*discount.Discount, error)
	Create(ctx context.Context, d *discount.Discount) error
	Update(ctx context.Context, d *discount.Discount) error
	Delete(ctx context.Context, id string) error
}

// Handler wires the HTTP controllers to their domain dependencies.
type Handler struct {
	products  catalog.Repository
	pricing   *discount.Service
	orders    *order.Service
	discounts DiscountStore
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	pricing *discount.Service,
	orders *order.Service,
	discounts DiscountStore,
) *Handler {
	return &Handler{
		products:  products,
		pricing:   pricing,
		orders:    orders,
		discounts: discounts,
	}
}

// Register mounts all routes on the engine. Admin routes sit behind the
// API-key guard.
func (h *Handler) Register(r *gin.Engine, guard gin.HandlerFunc) {
	api := r.Group("/api")

	api.GET("/products", h.ListProducts)
	api.GET("/products/:idOrSlug", h.GetProduct)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/history", h.OrderHistory)

	admin := api.Group("/admin", guard)
	admin.GET("/discounts", h.ListDiscounts)
	admin.POST("/discounts", h.CreateDiscount)
	admin.PATCH("/discounts/:id", h.UpdateDiscount)
	admin.DELETE("/discounts/:id", h.DeleteDiscount)
	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
}
