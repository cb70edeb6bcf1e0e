package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkaltoft/scrambletron/internal/config"
)

// RateLimiter applies per-client token bucket rate limiting.
type RateLimiter struct {
	mu       sync.Mutex
	config   config.RateLimitConfig
	clients  map[string]*clientLimiter
	stop     chan struct{}
	stopOnce sync.Once
}

// clientLimiter pairs a limiter with when the client was last seen, so
// idle entries can be removed.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.config.Enabled {
		return true
	}

	client, exists := r.clients[clientIP]
	if !exists {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), r.config.Burst),
		}
		r.clients[clientIP] = client
	}
	client.lastSeen = time.Now()

	return client.limiter.Allow()
}

// UpdateConfig applies new rate limit settings. Existing client
// limiters are dropped so the new rate takes effect immediately.
func (r *RateLimiter) UpdateConfig(cfg config.RateLimitConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config = cfg
	r.clients = make(map[string]*clientLimiter)
}

// ClientCount returns how many clients currently have limiters.
func (r *RateLimiter) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// CleanupIdleClients removes limiters for clients not seen recently,
// to prevent unbounded growth.
func (r *RateLimiter) CleanupIdleClients() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range r.clients {
		if client.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine that removes idle
// client limiters until Stop is called.
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.CleanupIdleClients()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop terminates the cleanup routine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
