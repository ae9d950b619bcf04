package tools

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter bounds tool executions per session key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

// NewRateLimiter creates a limiter allowing perMinute executions per session
// key, with a burst of the same size. Returns nil when perMinute <= 0 so a
// zero config disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMinute,
	}
}

// Allow reports whether another execution may proceed for the key.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.perMin)
		rl.limiters[key] = lim
	}
	rl.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("tool rate limit exceeded (%d/min), try again shortly", rl.perMin)
	}
	return nil
}
