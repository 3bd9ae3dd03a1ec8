package identity

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"preboard/internal/metrics"
)

// RoleResult is the outcome of an admin check. Unknown means the check did not finish
// in time; callers decide what that means for them.
type RoleResult int

const (
	RoleUnknown RoleResult = iota
	RoleAdmin
	RoleNonAdmin
)

func (r RoleResult) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleNonAdmin:
		return "non_admin"
	}
	return "unknown"
}

// MarshalText lets results appear by name in JSON.
func (r RoleResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RoleSource answers role membership; *Store implements it.
type RoleSource interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RoleChecker checks admin membership with a hard deadline and an optional Redis cache
// of definite answers.
type RoleChecker struct {
	source   RoleSource
	cache    *redis.Client
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewRoleChecker creates a checker. timeout <= 0 means five seconds; cache may be nil.
func NewRoleChecker(source RoleSource, cache *redis.Client, cacheTTL, timeout time.Duration) *RoleChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &RoleChecker{source: source, cache: cache, cacheTTL: cacheTTL, timeout: timeout}
}

func roleKey(userID string) string {
	return "preboard:role:" + AdminRole + ":" + userID
}

// Check reports whether userID is an admin. A lookup error counts as non-admin; running
// out of time yields RoleUnknown and is never cached.
func (c *RoleChecker) Check(ctx context.Context, userID string) RoleResult {
	res := c.check(ctx, userID)
	metrics.RoleChecks.WithLabelValues(res.String()).Inc()
	return res
}

func (c *RoleChecker) check(ctx context.Context, userID string) RoleResult {
	if c.cache != nil {
		switch v, err := c.cache.Get(ctx, roleKey(userID)).Result(); {
		case err == nil && v == "1":
			return RoleAdmin
		case err == nil && v == "0":
			return RoleNonAdmin
		case err != nil && err != redis.Nil:
			log.Printf("role cache read failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type answer struct {
		ok  bool
		err error
	}
	done := make(chan answer, 1)
	go func() {
		ok, err := c.source.HasRole(ctx, userID, AdminRole)
		done <- answer{ok, err}
	}()

	var res RoleResult
	select {
	case <-ctx.Done():
		log.Printf("role check for %s timed out after %s", userID, c.timeout)
		return RoleUnknown
	case a := <-done:
		if a.err != nil && ctx.Err() != nil {
			log.Printf("role check for %s timed out after %s", userID, c.timeout)
			return RoleUnknown
		}
		if a.err != nil {
			log.Printf("role check for %s failed: %v", userID, a.err)
			return RoleNonAdmin
		}
		res = RoleNonAdmin
		if a.ok {
			res = RoleAdmin
		}
	}

	if c.cache != nil {
		v := "0"
		if res == RoleAdmin {
			v = "1"
		}
		if err := c.cache.Set(ctx, roleKey(userID), v, c.cacheTTL).Err(); err != nil {
			log.Printf("role cache write failed: %v", err)
		}
	}
	return res
}

// Forget drops the cached answer for userID.
func (c *RoleChecker) Forget(ctx context.Context, userID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, roleKey(userID)).Err(); err != nil {
		log.Printf("role cache invalidate failed: %v", err)
	}
}
