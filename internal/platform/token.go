package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TokenSource yields the bearer token used against the platform services.
// Acquisition and refresh are owned by the platform's session layer; this
// daemon only reads the current token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// tokenStorageKey is the session cache key the platform writes its access
// token under.
const tokenStorageKey = "token-storage"

// RedisTokenSource reads the platform session token from the shared Redis
// cache.
type RedisTokenSource struct {
	rdb *redis.Client
}

// NewRedisTokenSource connects to the session cache at addr.
func NewRedisTokenSource(addr string) *RedisTokenSource {
	return &RedisTokenSource{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Token returns the current access token.
func (s *RedisTokenSource) Token(ctx context.Context) (string, error) {
	raw, err := s.rdb.Get(ctx, tokenStorageKey).Result()
	if err != nil {
		return "", fmt.Errorf("read token storage: %w", err)
	}
	var stored struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return "", fmt.Errorf("decode token storage: %w", err)
	}
	if stored.AccessToken == "" {
		return "", fmt.Errorf("token storage has no access token")
	}
	return stored.AccessToken, nil
}

// Close releases the underlying Redis connection.
func (s *RedisTokenSource) Close() error {
	return s.rdb.Close()
}

// StaticTokenSource returns a fixed token. Used for standalone deployments
// where the platform session cache is not reachable.
type StaticTokenSource string

// Token returns the configured token.
func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}
