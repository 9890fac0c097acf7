package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/pagination"
)

// OrderHandler serves a shopper's order history.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// ListMyOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	orders, total, err := h.service.ListUserOrders(r.Context(), shopperFrom(r).UserID, p.Offset, p.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, p))
}

// GetMyOrder handles GET /api/v1/orders/{orderNumber}.
func (h *OrderHandler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetUserOrder(r.Context(), shopperFrom(r).UserID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}
