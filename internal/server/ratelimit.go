package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterEvictInterval is how often idle per-IP limiters are scanned.
	limiterEvictInterval = time.Minute
	// limiterIdleCutoff is how long an IP must be idle before its limiter
	// is dropped.
	limiterIdleCutoff = 5 * time.Minute
)

// ipLimiter pairs a token bucket with the time it was last used.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket on the API endpoints.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	done     chan struct{}
}

// newRateLimiter starts the eviction loop and returns the limiter plus a
// stop function which must be called on shutdown.
func newRateLimiter(rps float64, burst int) (*rateLimiter, func()) {
	rl := &rateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}
	go rl.evictLoop()
	var once sync.Once
	return rl, func() { once.Do(func() { close(rl.done) }) }
}

// allow reports whether a request from ip may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[ip]
	if !ok {
		lim = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = lim
	}
	lim.lastSeen = time.Now()
	return lim.limiter.Allow()
}

// evictLoop periodically drops limiters for IPs that have gone quiet so the
// map does not grow without bound.
func (rl *rateLimiter) evictLoop() {
	ticker := time.NewTicker(limiterEvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleCutoff)
			rl.mu.Lock()
			for ip, lim := range rl.limiters {
				if lim.lastSeen.Before(cutoff) {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// middleware rejects requests over the per-IP budget with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the remote IP, ignoring the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
