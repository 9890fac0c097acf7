package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/pricing"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/middleware"
	"github.com/utafrali/rxstore/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Response DTOs ---

type cartResponse struct {
	SessionID string            `json:"session_id"`
	Items     []domain.CartItem `json:"items"`
	Subtotal  int64             `json:"subtotal"`
	Count     int               `json:"count"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newCartResponse(c *domain.Cart) cartResponse {
	return cartResponse{
		SessionID: c.SessionID,
		Items:     c.Items,
		Subtotal:  pricing.Subtotal(c.Items),
		Count:     c.Count(),
		UpdatedAt: c.UpdatedAt,
	}
}

type addItemResponse struct {
	Notice string          `json:"notice"`
	Item   domain.CartItem `json:"item"`
	Cart   cartResponse    `json:"cart"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// NewSession handles POST /api/v1/sessions. The id is echoed in the
// X-Session-ID response header as well.
func NewSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	w.Header().Set(middleware.HeaderSessionID, id)
	httputil.WriteData(w, http.StatusCreated, sessionResponse{SessionID: id})
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), shopperFrom(r).SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, item, err := h.service.AddItem(r.Context(), shopperFrom(r).SessionID, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, addItemResponse{
		Notice: item.Name + " adicionado ao carrinho",
		Item:   item,
		Cart:   newCartResponse(cart),
	})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), shopperFrom(r).SessionID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), shopperFrom(r).SessionID, chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), shopperFrom(r).SessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
