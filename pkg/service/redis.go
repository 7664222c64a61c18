package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// redisCache is a Redis-backed result cache. Entry keys carry a per-cache
// generation counter, so Purge is a single INCR: entries written under the
// old generation become unreachable and expire via TTL. Redis failures are
// treated as cache misses; the cache never fails an operation.
type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a result cache for one service cache kind
// ("find" or "get") on the given client.
func NewRedisCache(client *redis.Client, service, kind string, ttl time.Duration) ResultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &redisCache{
		client: client,
		prefix: fmt.Sprintf("inkwell:cache:%s:%s", service, kind),
		ttl:    ttl,
	}
}

// RedisFactory returns a CacheFactory producing Redis-backed caches.
func RedisFactory(client *redis.Client, ttl time.Duration) CacheFactory {
	return func(service, kind string) ResultCache {
		return NewRedisCache(client, service, kind, ttl)
	}
}

func (c *redisCache) entryKey(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.prefix+":gen").Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, hex.EncodeToString(sum[:])), nil
}

func (c *redisCache) Get(key string) (Result, bool) {
	ctx := context.Background()
	entryKey, err := c.entryKey(ctx, key)
	if err != nil {
		return Result{}, false
	}
	raw, err := c.client.Get(ctx, entryKey).Bytes()
	if err != nil {
		return Result{}, false
	}
	res, err := decodeResult(raw)
	if err != nil {
		return Result{}, false
	}
	return res, true
}

func (c *redisCache) Put(key string, r Result) {
	ctx := context.Background()
	entryKey, err := c.entryKey(ctx, key)
	if err != nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.client.Set(ctx, entryKey, data, c.ttl)
}

func (c *redisCache) Purge() {
	c.client.Incr(context.Background(), c.prefix+":gen")
}

// decodeResult restores the typed payload shapes a round trip through JSON
// loses: document sequences for find results, single documents for get.
func decodeResult(raw []byte) (Result, error) {
	var wire struct {
		Code         Code            `json:"resultCode"`
		Payload      json.RawMessage `json:"payload"`
		ErrorMessage string          `json:"errorMessage"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, err
	}
	res := Result{Code: wire.Code, ErrorMessage: wire.ErrorMessage}
	if len(wire.Payload) == 0 {
		return res, nil
	}
	var docs []document.Document
	if err := json.Unmarshal(wire.Payload, &docs); err == nil {
		res.Payload = docs
		return res, nil
	}
	var doc document.Document
	if err := json.Unmarshal(wire.Payload, &doc); err == nil {
		res.Payload = doc
		return res, nil
	}
	var generic any
	if err := json.Unmarshal(wire.Payload, &generic); err != nil {
		return Result{}, err
	}
	res.Payload = generic
	return res, nil
}
