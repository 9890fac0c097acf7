package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/rxstore/internal/checkout"
	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
)

// multipartOverhead is the room left for form fields around the proof file.
const multipartOverhead = 1 << 20

// CheckoutHandler exposes the checkout steps.
type CheckoutHandler struct {
	service       *service.CheckoutService
	proofMaxBytes int64
	logger        *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, proofMaxBytes int64, logger *slog.Logger) *CheckoutHandler {
	if proofMaxBytes <= 0 {
		proofMaxBytes = checkout.DefaultProofMaxBytes
	}
	return &CheckoutHandler{
		service:       svc,
		proofMaxBytes: proofMaxBytes,
		logger:        logger,
	}
}

type orderConfirmation struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	Status      string        `json:"status"`
	Totals      domain.Totals `json:"totals"`
}

// Current handles GET /api/v1/checkout.
func (h *CheckoutHandler) Current(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Current(r.Context(), shopperFrom(r))
	h.write(w, r, view, err)
}

// EnterStep handles GET /api/v1/checkout/steps/{step}.
func (h *CheckoutHandler) EnterStep(w http.ResponseWriter, r *http.Request) {
	step, err := checkout.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.service.EnterStep(r.Context(), shopperFrom(r), step)
	h.write(w, r, view, err)
}

// SubmitIdentification handles PUT /api/v1/checkout/identification. Field
// validation happens after the step guard, so the body is only decoded here.
func (h *CheckoutHandler) SubmitIdentification(w http.ResponseWriter, r *http.Request) {
	var req domain.PersonalData
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.service.SubmitIdentification(r.Context(), shopperFrom(r), req)
	h.write(w, r, view, err)
}

// SubmitDelivery handles PUT /api/v1/checkout/delivery.
func (h *CheckoutHandler) SubmitDelivery(w http.ResponseWriter, r *http.Request) {
	var req domain.AddressData
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.service.SubmitDelivery(r.Context(), shopperFrom(r), req)
	h.write(w, r, view, err)
}

// SubmitPayment handles PUT /api/v1/checkout/payment (multipart/form-data
// with a "proof" file and optional "notes").
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.proofMaxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.proofMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.ErrorResponse{Code: checkout.CodeProofTooLarge, Message: "Arquivo muito grande. Máximo 5MB."},
			})
			return
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", "failed to parse multipart form: "+err.Error())
		return
	}

	input := service.PaymentInput{Notes: r.FormValue("notes")}
	file, header, err := r.FormFile("proof")
	switch {
	case err == nil:
		defer file.Close()
		input.Proof = &checkout.Proof{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		}
		input.Data = file
	case !errors.Is(err, http.ErrMissingFile):
		httputil.WriteBadRequest(w, "INVALID_INPUT", "failed to read proof: "+err.Error())
		return
	}

	view, err := h.service.SubmitPayment(r.Context(), shopperFrom(r), input)
	h.write(w, r, view, err)
}

// Confirm handles POST /api/v1/checkout/confirm. An empty body means no
// newsletter opt-in.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req service.ConfirmInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "INVALID_INPUT", "invalid request body")
		return
	}

	order, err := h.service.Confirm(r.Context(), shopperFrom(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, orderConfirmation{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Totals:      order.Payment.Totals,
	})
}

func (h *CheckoutHandler) write(w http.ResponseWriter, r *http.Request, view *service.CheckoutView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "INVALID_INPUT", "invalid request body")
		return false
	}
	return true
}
