// internal/provider/tokencache.go
package provider

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores provider OAuth tokens until their declared expiry. A miss
// triggers a synchronous refresh in the client.
type TokenCache interface {
	Get(ctx context.Context, provider string) (string, bool)
	Set(ctx context.Context, provider string, token string, ttl time.Duration)
}

const tokenKeyPrefix = "billing:provider_token:"

type redisTokenCache struct {
	rdb *redis.Client
}

func NewRedisTokenCache(rdb *redis.Client) TokenCache {
	return &redisTokenCache{rdb: rdb}
}

func (c *redisTokenCache) Get(ctx context.Context, provider string) (string, bool) {
	token, err := c.rdb.Get(ctx, tokenKeyPrefix+provider).Result()
	if err != nil {
		// Cache errors degrade to a refresh, never to a request failure.
		return "", false
	}
	return token, token != ""
}

func (c *redisTokenCache) Set(ctx context.Context, provider string, token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_ = c.rdb.Set(ctx, tokenKeyPrefix+provider, token, ttl).Err()
}

type memoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
}

type memoryToken struct {
	value   string
	expires time.Time
}

// NewMemoryTokenCache is the in-process fallback used in tests and when Redis
// is not configured.
func NewMemoryTokenCache() TokenCache {
	return &memoryTokenCache{tokens: make(map[string]memoryToken)}
}

func (c *memoryTokenCache) Get(_ context.Context, provider string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[provider]
	if !ok || time.Now().After(t.expires) {
		return "", false
	}
	return t.value, true
}

func (c *memoryTokenCache) Set(_ context.Context, provider string, token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[provider] = memoryToken{value: token, expires: time.Now().Add(ttl)}
}
