package student

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const classesCacheKey = "preboard:classes"

// ClassCache keeps the class picker list in Redis. A nil *ClassCache reads straight through.
type ClassCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClassCache builds a cache over client; ttl <= 0 means five minutes.
func NewClassCache(client *redis.Client, ttl time.Duration) *ClassCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ClassCache{client: client, ttl: ttl}
}

// Get returns cached classes or loads, stores and returns them. Cache failures
// never fail the read.
func (c *ClassCache) Get(ctx context.Context, load func(context.Context) ([]Class, error)) ([]Class, error) {
	if c == nil {
		return load(ctx)
	}
	if raw, err := c.client.Get(ctx, classesCacheKey).Bytes(); err == nil {
		var classes []Class
		if json.Unmarshal(raw, &classes) == nil {
			return classes, nil
		}
	} else if err != redis.Nil {
		log.Printf("classes cache read failed: %v", err)
	}

	classes, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(classes); err == nil {
		if err := c.client.Set(ctx, classesCacheKey, raw, c.ttl).Err(); err != nil {
			log.Printf("classes cache write failed: %v", err)
		}
	}
	return classes, nil
}

// Invalidate drops the cached list.
func (c *ClassCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, classesCacheKey).Err(); err != nil {
		log.Printf("classes cache invalidate failed: %v", err)
	}
}
