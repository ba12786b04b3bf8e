package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter stores a rate limiter per client key.
type KeyedRateLimiter struct {
	keys map[string]*rate.Limiter
	mu   *sync.RWMutex
	r    rate.Limit
	b    int
}

// NewKeyedRateLimiter creates a new KeyedRateLimiter.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		keys: make(map[string]*rate.Limiter),
		mu:   &sync.RWMutex{},
		r:    r,
		b:    b,
	}
}

// Add creates a new rate limiter for a key.
func (i *KeyedRateLimiter) Add(key string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limiter, exists := i.keys[key]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(i.r, i.b)
	i.keys[key] = limiter
	return limiter
}

// Get returns the rate limiter for a key.
func (i *KeyedRateLimiter) Get(key string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.keys[key]
	i.mu.RUnlock()

	if !exists {
		return i.Add(key)
	}
	return limiter
}

// clientKey limits by device id once RequireDevice has authenticated the
// caller, so a wall of screens behind one NAT does not share a bucket.
// Anything else, including pairing code claims, is keyed on the client IP;
// request headers never choose the bucket.
func clientKey(c *gin.Context) string {
	if device := DeviceFrom(c); device != nil {
		return "device:" + device.ID.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter is a middleware for per-client rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Get(clientKey(c)).Allow() {
			abortError(c, http.StatusTooManyRequests, "rate_limited", "too many requests", "")
			return
		}
		c.Next()
	}
}
