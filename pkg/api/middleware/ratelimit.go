package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// MaxClients bounds the tracked buckets; new clients beyond it are refused.
	MaxClients int
	// ClientExpiration drops buckets idle for longer than this.
	ClientExpiration time.Duration
}

// DefaultRateLimitConfig suits layout requests, which are CPU bound.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		MaxClients:        10000,
		ClientExpiration:  10 * time.Minute,
	}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter is a per-client token bucket.
type RateLimiter struct {
	cfg     RateLimitConfig
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*bucket
	sweep   time.Time
}

// NewRateLimiter builds a limiter. Expired buckets are swept lazily on Allow.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, now: time.Now, clients: make(map[string]*bucket)}
}

// Allow takes one token from client's bucket.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.cfg.ClientExpiration > 0 && now.Sub(rl.sweep) > rl.cfg.ClientExpiration {
		for id, b := range rl.clients {
			if now.Sub(b.last) > rl.cfg.ClientExpiration {
				delete(rl.clients, id)
			}
		}
		rl.sweep = now
	}

	b, ok := rl.clients[client]
	if !ok {
		if rl.cfg.MaxClients > 0 && len(rl.clients) >= rl.cfg.MaxClients {
			return false
		}
		b = &bucket{tokens: float64(rl.cfg.BurstSize), last: now}
		rl.clients[client] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.cfg.RequestsPerSecond
	if burst := float64(rl.cfg.BurstSize); b.tokens > burst {
		b.tokens = burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients reports how many buckets are tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit answers 429 when key's bucket is empty. A nil limiter passes
// everything through.
func RateLimit(limiter *RateLimiter, key func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r)) {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.cfg.RequestsPerSecond, 'f', -1, 64))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
