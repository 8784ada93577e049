package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"atsfit/internal/errors"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	keyTypeAPIKey        = "api_key"
	keyTypeIP            = "ip"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. Buckets idle for longer
// than the sweep interval are dropped.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	perMin  int
	burst   int
	done    chan struct{}
	once    sync.Once
	logger  *errors.Logger
}

// NewRateLimiter allows requestsPerMin per key with a bucket of burst tokens
func NewRateLimiter(requestsPerMin, burst int, logger *errors.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(requestsPerMin) / 60.0),
		perMin:  requestsPerMin,
		burst:   burst,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.sweepLoop(limiterSweepInterval)
	return rl
}

// Allow consumes a token from key's bucket and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	entry, ok := rl.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// RetryAfter is the number of whole seconds until one token is refilled
func (rl *RateLimiter) RetryAfter() int {
	if rl.perMin <= 0 {
		return 60
	}
	return (60 + rl.perMin - 1) / rl.perMin
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.entries),
		"rate_per_second": float64(rl.limit),
		"rate_per_minute": float64(rl.limit) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now().Add(-interval))
		case <-rl.done:
			return
		}
	}
}

// sweep drops buckets not used since cutoff
func (rl *RateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
	rl.logger.Debug("Rate limiter sweep completed", "remaining_limiters", len(rl.entries))
}

// Close stops the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// rateLimitMiddleware rejects requests whose bucket is empty with 429
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil || s.RateLimit == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key, keyType := rateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"key_type", keyType,
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.observability.Metrics().RecordRateLimitHit(r.Context(), keyType)
				w.Header().Set("Retry-After", fmt.Sprint(s.RateLimiter.RetryAfter()))
				writeErrorResponse(w, "RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// rateLimitKey prefers the API key when keyed limiting is on, then the client IP
func rateLimitKey(r *http.Request, byAPIKey, byIP bool) (string, string) {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey, keyTypeAPIKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r), keyTypeIP
	}
	return "", ""
}

// getClientIP returns the first valid X-Forwarded-For entry, then X-Real-IP,
// then the remote address
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		candidate = strings.TrimSpace(candidate)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
