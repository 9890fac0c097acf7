package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/rxstore/internal/domain"
)

const checkoutKeyPrefix = "checkout:"

// CheckoutSessionRepository implements repository.CheckoutSessionRepository
// using Redis.
type CheckoutSessionRepository struct {
	store jsonStore
}

// NewCheckoutSessionRepository creates a new Redis-backed checkout draft store.
func NewCheckoutSessionRepository(client *redis.Client, ttl time.Duration) *CheckoutSessionRepository {
	return &CheckoutSessionRepository{
		store: jsonStore{client: client, prefix: checkoutKeyPrefix, resource: "checkout session", ttl: ttl},
	}
}

func (r *CheckoutSessionRepository) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := r.store.get(ctx, sessionID, &session); err != nil {
		return nil, err
	}
	if session.Shipping.Options == nil {
		session.Shipping.Options = []domain.ShippingOption{}
	}
	return &session, nil
}

func (r *CheckoutSessionRepository) Save(ctx context.Context, session *domain.CheckoutSession) error {
	return r.store.set(ctx, session.SessionID, session)
}

func (r *CheckoutSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.del(ctx, sessionID)
}
