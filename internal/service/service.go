// Package service holds the storefront use cases: catalog reads and admin
// edits, the session cart, coupon and shipping pricing, the checkout flow,
// and order management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// Shopper identifies who is calling. SessionID is always present; UserID is
// set once the gateway has authenticated the shopper.
type Shopper struct {
	SessionID string
	UserID    string
	UserEmail string
}

// Authenticated reports whether the shopper is logged in.
func (s Shopper) Authenticated() bool {
	return s.UserID != ""
}

// storeLocation is the storefront's business timezone. Brazil dropped DST in
// 2019, so a fixed offset is exact.
var storeLocation = time.FixedZone("BRT", -3*60*60)

func utcNow() time.Time {
	return time.Now().UTC()
}

func requireSession(sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}

// notFoundAsNil turns a not-found lookup into (nil, nil).
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// logPublishError logs a failed event publish. Events never fail the
// operation that triggered them.
func logPublishError(ctx context.Context, logger *slog.Logger, topic string, err error, attrs ...any) {
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, "failed to publish event",
		append([]any{slog.String("topic", topic), slog.String("error", err.Error())}, attrs...)...,
	)
}
