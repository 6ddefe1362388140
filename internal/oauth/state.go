package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStateTTL = 10 * time.Minute

	stateKeyPrefix = "oauth:state:"
	stateBytes     = 32
)

var ErrStateCollision = errors.New("oauth state already stored")

// StateStore remembers issued state values until the callback consumes them.
type StateStore interface {
	Save(ctx context.Context, state string) error
	// Consume reports whether state was issued and not yet used. A state
	// can be consumed only once.
	Consume(ctx context.Context, state string) (bool, error)
}

// GenerateState returns a URL-safe random state value.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RedisStateStore keeps state values in Redis with an expiry.
type RedisStateStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStateStore creates a store whose entries expire after ttl.
func NewRedisStateStore(client redis.Cmdable, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Save(ctx context.Context, state string) error {
	ok, err := s.client.SetNX(ctx, stateKeyPrefix+state, 1, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	if !ok {
		return ErrStateCollision
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.client.GetDel(ctx, stateKeyPrefix+state).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return true, nil
}
