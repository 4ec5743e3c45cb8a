package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter allows limit hits per key in each fixed window.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
	items  map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
		items:  make(map[string]*rateLimitEntry),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	if key == "" {
		return false
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, e := range r.items {
		if now.Sub(e.windowStart) >= r.window {
			delete(r.items, k)
		}
	}

	entry := r.items[key]
	if entry == nil {
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
	}
	if entry.count >= r.limit {
		return false
	}
	entry.count++
	return true
}

// rateLimitMiddleware keys requests by actor when present, else by client IP.
func rateLimitMiddleware(limiter *rateLimiter, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(keyFn(c)) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
