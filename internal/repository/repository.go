package repository

import (
	"context"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns one page of products matching the filter, sorted as
	// requested, along with the total match count.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// List returns every category ordered by name, each with the number of
	// products filed under its slug.
	List(ctx context.Context) ([]domain.Category, error)

	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// CouponRepository defines the interface for coupon persistence operations.
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)

	// GetActiveByCode looks up an active coupon by its upper-cased code.
	// Inactive coupons are reported as not found.
	GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)

	List(ctx context.Context) ([]domain.Coupon, error)
	Update(ctx context.Context, coupon *domain.Coupon) error
	Delete(ctx context.Context, id string) error
}

// ShippingZoneRepository defines the interface for shipping zone persistence.
type ShippingZoneRepository interface {
	Create(ctx context.Context, zone *domain.ShippingZone) error
	GetByID(ctx context.Context, id string) (*domain.ShippingZone, error)

	// List returns all zones in match order (position, then creation time).
	List(ctx context.Context) ([]domain.ShippingZone, error)

	Update(ctx context.Context, zone *domain.ShippingZone) error
	Delete(ctx context.Context, id string) error
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts the order and its items in a single transaction.
	Create(ctx context.Context, order *domain.Order) error

	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// List returns orders matching the filter, newest first, with the total count.
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus moves an order from one status to another. It fails with
	// a conflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error

	// Stats counts products, categories and orders, and the orders and
	// revenue created since the given instant.
	Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error)
}

// CartRepository stores one cart ledger per shopper session.
type CartRepository interface {
	// Get returns the session's cart, or apperrors.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save overwrites the session's cart and refreshes its expiry.
	Save(ctx context.Context, cart *domain.Cart) error

	Delete(ctx context.Context, sessionID string) error
}

// CheckoutSessionRepository stores the checkout draft of a shopper session.
type CheckoutSessionRepository interface {
	// Get returns the session's draft, or apperrors.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)

	// Save overwrites the draft and refreshes its expiry.
	Save(ctx context.Context, session *domain.CheckoutSession) error

	Delete(ctx context.Context, sessionID string) error
}
