package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/rxstore/internal/auth"
	"github.com/utafrali/rxstore/internal/service"
	"github.com/utafrali/rxstore/pkg/health"
	"github.com/utafrali/rxstore/pkg/middleware"
)

// Services bundles the use cases the router exposes.
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Pricing  *service.PricingService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

// RouterConfig holds the HTTP-level knobs.
type RouterConfig struct {
	ServiceName         string
	CORS                middleware.CORSConfig
	AdminTokens         middleware.TokenValidator
	CouponRatePerSecond float64
	CouponRateBurst     int
	ProofMaxBytes       int64
	// Files serves uploaded blobs under /files/. Nil leaves the route out.
	Files http.Handler
}

// NewRouter creates a chi router with all storefront and back-office routes
// registered.
func NewRouter(svcs Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Files != nil {
		r.With(middleware.CacheControl(time.Hour)).Handle("/files/*", http.StripPrefix("/files/", cfg.Files))
	}

	catalog := NewCatalogHandler(svcs.Catalog, logger)
	cart := NewCartHandler(svcs.Cart, logger)
	pricing := NewPricingHandler(svcs.Pricing, logger)
	checkout := NewCheckoutHandler(svcs.Checkout, cfg.ProofMaxBytes, logger)
	orders := NewOrderHandler(svcs.Orders, logger)
	admin := NewAdminHandler(svcs.Catalog, svcs.Pricing, svcs.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/sessions", NewSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(time.Minute))
			r.Get("/products", catalog.ListProducts)
			r.Get("/products/{idOrSlug}", catalog.GetProduct)
			r.Get("/categories", catalog.ListCategories)
			r.Get("/categories/{idOrSlug}", catalog.GetCategory)
		})

		r.Get("/postal-codes/{cep}", pricing.LookupPostalCode)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(RequireSession)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.GetCart)
				r.Delete("/", cart.ClearCart)
				r.Post("/items", cart.AddItem)
				r.Put("/items/{productId}", cart.UpdateItemQuantity)
				r.Delete("/items/{productId}", cart.RemoveItem)

				r.Get("/totals", pricing.Summary)
				r.With(middleware.RateLimit(cfg.CouponRatePerSecond, cfg.CouponRateBurst, middleware.BySessionOrIP, logger)).
					Post("/coupon", pricing.ApplyCoupon)
				r.Delete("/coupon", pricing.RemoveCoupon)
			})

			r.Post("/shipping/quote", pricing.QuoteShipping)
			r.Put("/shipping/selection", pricing.SelectShipping)

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkout.Current)
				r.Get("/steps/{step}", checkout.EnterStep)
				r.Put("/identification", checkout.SubmitIdentification)
				r.Put("/delivery", checkout.SubmitDelivery)
				r.Put("/payment", checkout.SubmitPayment)
				r.Post("/confirm", checkout.Confirm)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get("/orders", orders.ListMyOrders)
			r.Get("/orders/{orderNumber}", orders.GetMyOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.Auth(cfg.AdminTokens))
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			admin.Routes(r)
		})
	})

	return r
}
