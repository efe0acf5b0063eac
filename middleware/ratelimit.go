package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size. Stale limiters are swept until
// ctx is done.
func RateLimit(ctx context.Context, r rate.Limit, b int) gin.HandlerFunc {
	limiters := &sync.Map{}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
				limiters.Range(func(k, v interface{}) bool {
					if v.(*ipLimiter).lastSeen.Load() < cutoff {
						limiters.Delete(k)
					}
					return true
				})
			}
		}
	}()

	getLimiter := func(ip string) *rate.Limiter {
		v, _ := limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(r, b)})
		il := v.(*ipLimiter)
		il.lastSeen.Store(time.Now().UnixNano())
		return il.limiter
	}

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.Set(ErrorKindKey, "RateLimited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "kind": "RateLimited"})
			return
		}
		c.Next()
	}
}
