// Package redis holds the shopper-session state: cart ledgers and checkout
// drafts. Both are JSON documents under a prefixed key with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

type jsonStore struct {
	client   *redis.Client
	prefix   string
	resource string
	ttl      time.Duration
}

func (s jsonStore) get(ctx context.Context, id string, dst any) error {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.NotFound(s.resource, id)
		}
		return fmt.Errorf("redis get %s: %w", s.resource, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", s.resource, err)
	}
	return nil
}

func (s jsonStore) set(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.resource, err)
	}
	if err := s.client.Set(ctx, s.prefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.resource, err)
	}
	return nil
}

func (s jsonStore) del(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.resource, err)
	}
	return nil
}
