package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/validator"
)

// PricingHandler serves coupon, shipping and postal code endpoints.
type PricingHandler struct {
	service *service.PricingService
	logger  *slog.Logger
}

// NewPricingHandler creates a new pricing HTTP handler.
func NewPricingHandler(svc *service.PricingService, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ApplyCouponRequest carries the code typed by the shopper. Blank codes are
// rejected by the service with its own message.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// QuoteShippingRequest carries the CEP to quote.
type QuoteShippingRequest struct {
	PostalCode string `json:"postal_code"`
}

// SelectShippingRequest picks one of the quoted options.
type SelectShippingRequest struct {
	OptionID domain.ShippingTier `json:"option_id" validate:"required"`
}

// --- Handlers ---

// Summary handles GET /api/v1/cart/totals.
func (h *PricingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), shopperFrom(r).SessionID)
	h.write(w, r, summary, err)
}

// ApplyCoupon handles POST /api/v1/cart/coupon.
func (h *PricingHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	summary, err := h.service.ApplyCoupon(r.Context(), shopperFrom(r).SessionID, req.Code)
	h.write(w, r, summary, err)
}

// RemoveCoupon handles DELETE /api/v1/cart/coupon.
func (h *PricingHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.RemoveCoupon(r.Context(), shopperFrom(r).SessionID)
	h.write(w, r, summary, err)
}

// QuoteShipping handles POST /api/v1/shipping/quote.
func (h *PricingHandler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req QuoteShippingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	summary, err := h.service.QuoteShipping(r.Context(), shopperFrom(r).SessionID, req.PostalCode)
	h.write(w, r, summary, err)
}

// SelectShipping handles PUT /api/v1/shipping/selection.
func (h *PricingHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req SelectShippingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	summary, err := h.service.SelectShipping(r.Context(), shopperFrom(r).SessionID, req.OptionID)
	h.write(w, r, summary, err)
}

// LookupPostalCode handles GET /api/v1/postal-codes/{cep}.
func (h *PricingHandler) LookupPostalCode(w http.ResponseWriter, r *http.Request) {
	addr, err := h.service.LookupPostalCode(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, addr)
}

func (h *PricingHandler) write(w http.ResponseWriter, r *http.Request, summary *service.PricingSummary, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}
