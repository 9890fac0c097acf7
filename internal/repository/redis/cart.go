package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/rxstore/internal/domain"
)

const cartKeyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	store jsonStore
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		store: jsonStore{client: client, prefix: cartKeyPrefix, resource: "cart", ttl: ttl},
	}
}

// Get retrieves the cart of a session.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := r.store.get(ctx, sessionID, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// Save persists a cart with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return r.store.set(ctx, cart.SessionID, cart)
}

// Delete removes a session's cart.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.del(ctx, sessionID)
}
