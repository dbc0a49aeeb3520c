package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
)

const idleLimiterExpiry = 10 * time.Minute

// SourceRateLimiter holds one token bucket per source address.
type SourceRateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*sourceLimiter
}

type sourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSourceRateLimiter returns a limiter allowing each source requestsPerSecond sustained requests,
// with bursts of up to burst. A non-positive rate disables limiting.
func NewSourceRateLimiter(requestsPerSecond float64, burst int) *SourceRateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &SourceRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*sourceLimiter),
	}
}

// Allow reports whether a request from source may proceed now.
func (l *SourceRateLimiter) Allow(source string) bool {
	if l == nil || l.limit == rate.Inf {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterExpiry {
			delete(l.limiters, key)
		}
	}
	entry, ok := l.limiters[source]
	if !ok {
		entry = &sourceLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[source] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// MakeRateLimiter makes a middleware that rejects requests from a source that exceeds its rate.
func MakeRateLimiter(log logger.Log, limiter *SourceRateLimiter, writeError ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			source := SourceIP(r).String()
			if !limiter.Allow(source) {
				log.Warnf("Rate limiting inbound hooks from %s", source)
				w.Header().Set("Retry-After", "1")
				writeError(w, r, gerror.NewErrRateLimited())
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
