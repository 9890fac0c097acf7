package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/httputil"
	"github.com/utafrali/rxstore/pkg/pagination"
)

// CatalogHandler serves the public catalog.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// ListProducts handles GET /api/v1/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, p, ok := productFilterFromRequest(w, r)
	if !ok {
		return
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(products, total, p))
}

// GetProduct handles GET /api/v1/products/{idOrSlug}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// GetCategory handles GET /api/v1/categories/{idOrSlug}.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, category)
}

// productFilterFromRequest reads the listing query. It answers 400 itself
// and returns false when a price bound is malformed.
func productFilterFromRequest(w http.ResponseWriter, r *http.Request) (domain.ProductFilter, pagination.Params, bool) {
	q := r.URL.Query()
	p := pagination.FromRequest(r)

	filter := domain.ProductFilter{
		Category:     q.Get("category"),
		Search:       q.Get("search"),
		FeaturedOnly: q.Get("featured") == "true",
		Sort:         domain.ParseProductSort(q.Get("sort")),
		Offset:       p.Offset,
		Limit:        p.Limit,
	}
	for _, bound := range []struct {
		name string
		dst  **int64
	}{
		{"min_price", &filter.MinPrice},
		{"max_price", &filter.MaxPrice},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", bound.name+" must be a non-negative amount in cents")
			return domain.ProductFilter{}, pagination.Params{}, false
		}
		*bound.dst = &v
	}
	return filter, p, true
}
