package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/pagination"
	"github.com/utafrali/rxstore/pkg/validator"
)

// AdminHandler serves the back-office. Every route sits behind an admin
// bearer token.
type AdminHandler struct {
	catalog *service.CatalogService
	pricing *service.PricingService
	orders  *service.OrderService
	logger  *slog.Logger
}

// NewAdminHandler creates a new back-office HTTP handler.
func NewAdminHandler(catalog *service.CatalogService, pricing *service.PricingService, orders *service.OrderService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		pricing: pricing,
		orders:  orders,
		logger:  logger,
	}
}

// Routes registers the back-office endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Post("/{id}/image", h.UploadProductImage)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.ListCoupons)
		r.Post("/", h.CreateCoupon)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})

	r.Route("/shipping-zones", func(r chi.Router) {
		r.Get("/", h.ListShippingZones)
		r.Post("/", h.CreateShippingZone)
		r.Put("/{id}", h.UpdateShippingZone)
		r.Delete("/{id}", h.DeleteShippingZone)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateOrderStatus)
	})
}

// --- Dashboard ---

// Dashboard handles GET /api/v1/admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Dashboard(r.Context())
	h.write(w, r, http.StatusOK, stats, err)
}

// --- Products ---

// ListProducts handles GET /api/v1/admin/products.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, p, ok := productFilterFromRequest(w, r)
	if !ok {
		return
	}
	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(products, total, p))
}

// GetProduct handles GET /api/v1/admin/products/{id}.
func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	h.write(w, r, http.StatusOK, product, err)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), &req)
	h.write(w, r, http.StatusCreated, product, err)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), id.String(), &req)
	h.write(w, r, http.StatusOK, product, err)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.noContent(w, r, h.catalog.DeleteProduct(r.Context(), id.String()))
}

// UploadProductImage handles POST /api/v1/admin/products/{id}/image
// (multipart/form-data with an "image" file).
func (h *AdminHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(service.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "FILE_TOO_LARGE", Message: "image must not exceed 5MB"},
			})
			return
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", "failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_INPUT", "image file is required")
		return
	}
	defer file.Close()

	product, err := h.catalog.UploadProductImage(r.Context(), id.String(), &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	h.write(w, r, http.StatusOK, product, err)
}

// --- Categories ---

// ListCategories handles GET /api/v1/admin/categories.
func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if categories == nil {
		categories = []domain.Category{}
	}
	h.write(w, r, http.StatusOK, categories, err)
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), &req)
	h.write(w, r, http.StatusCreated, category, err)
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}.
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.CategoryInput
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), id.String(), &req)
	h.write(w, r, http.StatusOK, category, err)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.noContent(w, r, h.catalog.DeleteCategory(r.Context(), id.String()))
}

// --- Coupons ---

// ListCoupons handles GET /api/v1/admin/coupons.
func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.pricing.ListCoupons(r.Context())
	if coupons == nil {
		coupons = []domain.Coupon{}
	}
	h.write(w, r, http.StatusOK, coupons, err)
}

// GetCoupon handles GET /api/v1/admin/coupons/{id}.
func (h *AdminHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	coupon, err := h.pricing.GetCoupon(r.Context(), id.String())
	h.write(w, r, http.StatusOK, coupon, err)
}

// CreateCoupon handles POST /api/v1/admin/coupons.
func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponInput
	if !decodeJSON(w, r, &req) {
		return
	}
	coupon, err := h.pricing.CreateCoupon(r.Context(), &req)
	h.write(w, r, http.StatusCreated, coupon, err)
}

// UpdateCoupon handles PUT /api/v1/admin/coupons/{id}.
func (h *AdminHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.CouponInput
	if !decodeJSON(w, r, &req) {
		return
	}
	coupon, err := h.pricing.UpdateCoupon(r.Context(), id.String(), &req)
	h.write(w, r, http.StatusOK, coupon, err)
}

// DeleteCoupon handles DELETE /api/v1/admin/coupons/{id}.
func (h *AdminHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.noContent(w, r, h.pricing.DeleteCoupon(r.Context(), id.String()))
}

// --- Shipping zones ---

// ListShippingZones handles GET /api/v1/admin/shipping-zones.
func (h *AdminHandler) ListShippingZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.pricing.ListShippingZones(r.Context())
	if zones == nil {
		zones = []domain.ShippingZone{}
	}
	h.write(w, r, http.StatusOK, zones, err)
}

// CreateShippingZone handles POST /api/v1/admin/shipping-zones.
func (h *AdminHandler) CreateShippingZone(w http.ResponseWriter, r *http.Request) {
	var req service.ShippingZoneInput
	if !decodeJSON(w, r, &req) {
		return
	}
	zone, err := h.pricing.CreateShippingZone(r.Context(), &req)
	h.write(w, r, http.StatusCreated, zone, err)
}

// UpdateShippingZone handles PUT /api/v1/admin/shipping-zones/{id}.
func (h *AdminHandler) UpdateShippingZone(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.ShippingZoneInput
	if !decodeJSON(w, r, &req) {
		return
	}
	zone, err := h.pricing.UpdateShippingZone(r.Context(), id.String(), &req)
	h.write(w, r, http.StatusOK, zone, err)
}

// DeleteShippingZone handles DELETE /api/v1/admin/shipping-zones/{id}.
func (h *AdminHandler) DeleteShippingZone(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.noContent(w, r, h.pricing.DeleteShippingZone(r.Context(), id.String()))
}

// --- Orders ---

// ListOrders handles GET /api/v1/admin/orders?status=&user_id=.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := domain.OrderFilter{
		UserID: r.URL.Query().Get("user_id"),
		Status: r.URL.Query().Get("status"),
		Offset: p.Offset,
		Limit:  p.Limit,
	}
	orders, total, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, p))
}

// GetOrder handles GET /api/v1/admin/orders/{id}.
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id.String())
	h.write(w, r, http.StatusOK, order, err)
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/{id}/status.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.UpdateStatusInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), id.String(), req.Status)
	h.write(w, r, http.StatusOK, order, err)
}

func (h *AdminHandler) write(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, v)
}

func (h *AdminHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
