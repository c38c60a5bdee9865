package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/httputil"
)

const clientIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients *cache.Cache
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		clients: cache.New(clientIdleTTL, clientIdleTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.clients.Get(key); ok {
		rl.clients.Set(key, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Set(key, l, cache.DefaultExpiration)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			httputil.RespondWithError(c, apperrors.TooManyRequests())
			c.Abort()
			return
		}
		c.Next()
	}
}
