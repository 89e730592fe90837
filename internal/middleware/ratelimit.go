package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RetryAfter is the Retry-After value sent with 429 responses, in seconds
const RetryAfter = "60"

// RateLimiter limits requests per client
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *logrus.Logger
}

// NewRateLimiter allows perMinute requests per client, with bursts of up to burst
func NewRateLimiter(perMinute, burst int, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    max(burst, 1),
		logger:   logger,
	}
}

// getLimiter returns the limiter for a key, creating it on first use
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Allow takes a token for the request's client. A nil limiter allows everything.
func (rl *RateLimiter) Allow(r *http.Request) bool {
	if rl == nil {
		return true
	}
	key := GetUserID(r.Context())
	if key == "" {
		key = clientIP(r)
	}
	if !rl.getLimiter(key).Allow() {
		rl.logger.WithFields(logrus.Fields{"key": key, "path": r.URL.Path}).Warn("Rate limit exceeded")
		return false
	}
	return true
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r) {
			w.Header().Set("Retry-After", RetryAfter)
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops all limiters once the map grows past a bound
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
