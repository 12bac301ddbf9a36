// Package ratelimiter limits the frequency of per-user operations.
package ratelimiter

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"updown_backend/internal/api"
	jwtmw "updown_backend/internal/platform/jwt"
)

// UserRateLimiter keeps one token bucket per authenticated user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[uint]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter creates a limiter allowing `limit` operations per
// interval, with `burst` immediately available.
func NewUserRateLimiter(limit int, interval time.Duration, burst int) *UserRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limiters: make(map[uint]*rate.Limiter),
		limit:    rate.Every(interval / time.Duration(limit)),
		burst:    burst,
	}
}

func (l *UserRateLimiter) limiterFor(userID uint) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}

// Allow reports whether userID may perform the operation now.
func (l *UserRateLimiter) Allow(userID uint) bool {
	return l.limiterFor(userID).Allow()
}

// Middleware rejects requests over the per-user budget with 429. It must run
// after the auth middleware so the user ID is in the context.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint(jwtmw.ContextUserID)
		if !l.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				api.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
