package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dentokart/dentokart/internal/domain/order"
)

// normalizePhone canonicalizes a phone number to E.164 so the same customer
// always stores and queries under one spelling. Separators are stripped, a
// 00 prefix becomes +, and a number without + keeps its digits under an
// assumed local +. Returns "" when nothing usable remains.
func normalizePhone(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '(', ')', '-':
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	if strings.HasPrefix(s, "+") {
		return s
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return "+" + digits.String()
}

type orderItemRequest struct {
	ProductID string            `json:"productId" binding:"required"`
	SKU       string            `json:"sku" binding:"required"`
	Quantity  int               `json:"quantity" binding:"required,min=1"`
	Price     float64           `json:"price"`
	Title     string            `json:"title"`
	Options   map[string]string `json:"options"`
}

type createOrderRequest struct {
	Phone       string             `json:"phone" binding:"required"`
	ClientID    string             `json:"clientId" binding:"required"`
	Items       []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryFee float64            `json:"deliveryFee" binding:"gte=0"`
	Name        string             `json:"name" binding:"max=120"`
	Comment     string             `json:"comment" binding:"max=500"`
}

// CreateOrder handles POST /api/orders. The idempotency key travels in the
// X-Idempotency-Key header; resubmissions with the same key return the
// originally created order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	phone := normalizePhone(req.Phone)
	if phone == "" {
		respondError(c, http.StatusBadRequest, "phone must contain digits")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			Price:     decimal.NewFromFloat(it.Price),
			Title:     it.Title,
			Options:   it.Options,
		}
	}

	o, err := h.orders.Create(c.Request.Context(), order.CreateRequest{
		Phone:          phone,
		ClientID:       req.ClientID,
		CustomerID:     c.GetString("customerId"),
		Items:          items,
		DeliveryFee:    decimal.NewFromFloat(req.DeliveryFee),
		Name:           req.Name,
		Comment:        req.Comment,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderDTOFrom(o))
}

// OrderHistory handles GET /api/orders/history. The caller must present
// both identifiers; knowing a phone number alone is not enough to read the
// orders placed under it.
func (h *Handler) OrderHistory(c *gin.Context) {
	phone := normalizePhone(c.Query("phone"))
	clientID := c.Query("clientId")
	if phone == "" || clientID == "" {
		respondError(c, http.StatusBadRequest, "phone and clientId required")
		return
	}

	orders, err := h.orders.History(c.Request.Context(), phone, clientID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	items := make([]orderDTO, len(orders))
	for i := range orders {
		items[i] = orderDTOFrom(&orders[i])
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
