package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimiter throttles chat traffic with a token bucket per patient.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    float64 // tokens per second
	burst   int     // bucket capacity
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rate requests/sec with the given
// burst per patient.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
	}
	// Evict idle buckets so long-lived processes don't keep one entry per
	// patient forever.
	go rl.evictIdle()
	return rl
}

// Allow reports whether the request identified by key is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.burst), lastSeen: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range rl.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// configured rate with 429 Too Many Requests. It runs behind PatientJWT, so
// buckets are keyed on the authenticated patient id; anonymous traffic falls
// back to the client address so it cannot drain one shared bucket.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(limitKey(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if userID, ok := UserIDFromContext(r.Context()); ok && userID != anonymousUserID {
		return fmt.Sprintf("patient:%d", userID)
	}
	addr := r.RemoteAddr
	// Prefer X-Real-Ip set by chi's RealIP middleware.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		addr = xri
	}
	return "addr:" + addr
}
