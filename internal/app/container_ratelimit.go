package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch-go/internal/config"
	"service-dispatch-go/internal/http/middleware/ratelimit"
	"service-dispatch-go/internal/logx"
)

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return ratelimit.NewNopLimiter()
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       cfg.RateLimit.Rate,
		Burst:      cfg.RateLimit.Burst,
		TTL:        cfg.RateLimit.TTL,
		MaxBuckets: cfg.RateLimit.MaxBuckets,
	})
}

type rateLimitIn struct {
	dig.In

	Logger   logx.Logger
	Exceeded prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter  ratelimit.Limiter
}

func newRateLimitMiddleware(d rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(d.Logger, d.Exceeded, d.Limiter)
}
