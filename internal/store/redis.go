package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the cache client. A nil *Redis means caching is off.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts; an empty addr disables it.
func NewRedis(addr string) *Redis {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Cache returns the client for cache layers, or nil when redis is off.
func (r *Redis) Cache() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

// Healthy verifies redis connectivity. A disabled redis counts as healthy.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return true
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
