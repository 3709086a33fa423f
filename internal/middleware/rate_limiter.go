package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

const limiterIdle = 10 * time.Minute

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *cache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(limiterIdle, limiterIdle),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.limiters.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		// Lost the race; use the bucket that won.
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Status:  httputil.StatusError,
				Message: "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
