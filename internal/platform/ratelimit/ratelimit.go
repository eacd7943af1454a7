// Package ratelimit bounds how often one identifier may trigger a portal
// search. The toll engine itself performs no limiting; this middleware is
// the external check its entry point sits behind.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter hands out a small fixed budget of searches per window per
// identifier (token bucket: the budget refills gradually over the window).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perID   rate.Limit
	burst   int
}

// New allows budget events per window for each identifier.
func New(budget int, window time.Duration) *Limiter {
	if budget <= 0 {
		budget = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		perID:   rate.Every(window / time.Duration(budget)),
		burst:   budget,
	}
}

// Allow reports whether id has budget left right now.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[id]
	if !ok {
		bucket = rate.NewLimiter(l.perID, l.burst)
		l.buckets[id] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

// Middleware rejects over-budget requests with 429. identify extracts the
// limited identifier from the request, typically the authenticated tenant.
func (l *Limiter) Middleware(identify func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identify(c)
		if id == "" {
			id = c.ClientIP()
		}
		if !l.Allow(id) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "search budget exhausted, try again later",
			})
			return
		}
		c.Next()
	}
}
