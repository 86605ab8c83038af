// Package ratelimit throttles per-caller request rates on the HTTP API
// using golang.org/x/time/rate token buckets, one per caller address.
// Idle buckets are evicted only when Sweep is called.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/beans-labs/vesting-manager/pkg/config"
)

// Limiter hands out a rate.Limiter per caller, so one noisy recipient
// hammering /claim cannot starve others out of the shared HTTP server.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*callerLimiter
	rps      rate.Limit
	burst    int
	enabled  bool
}

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a Limiter from the daemon's rate limiter configuration.
func New(cfg config.RateLimiterConfig) *Limiter {
	return &Limiter{
		limiters: make(map[string]*callerLimiter),
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		enabled:  cfg.Enabled,
	}
}

// Allow reports whether caller may proceed right now, consuming one
// token from its bucket if so. Always true when the limiter is
// disabled.
func (l *Limiter) Allow(caller string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.limiters[caller]
	if !ok {
		cl = &callerLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[caller] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// Sweep evicts callers that haven't made a request in longer than
// maxIdle, bounding memory use across a long-running daemon. Intended
// to be called periodically from a background ticker.
func (l *Limiter) Sweep(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for addr, cl := range l.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(l.limiters, addr)
		}
	}
}
