package security

import (
	"testing"
	"time"

	"github.com/mkaltoft/scrambletron/internal/config"
)

func TestRateLimiter(t *testing.T) {
	t.Run("AllowsWithinBurst", func(t *testing.T) {
		limiter := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 1,
			Burst:             3,
		})

		for i := 0; i < 3; i++ {
			if !limiter.Allow("10.0.0.1") {
				t.Fatalf("request %d denied within burst", i)
			}
		}
		if limiter.Allow("10.0.0.1") {
			t.Error("request beyond burst was allowed")
		}
	})

	t.Run("DisabledAllowsEverything", func(t *testing.T) {
		limiter := NewRateLimiter(config.RateLimitConfig{Enabled: false})

		for i := 0; i < 100; i++ {
			if !limiter.Allow("10.0.0.1") {
				t.Fatal("disabled limiter denied a request")
			}
		}
	})

	t.Run("IsolatesClients", func(t *testing.T) {
		limiter := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 1,
			Burst:             1,
		})

		if !limiter.Allow("10.0.0.1") {
			t.Fatal("first client denied its first request")
		}
		if limiter.Allow("10.0.0.1") {
			t.Error("first client allowed beyond burst")
		}
		if !limiter.Allow("10.0.0.2") {
			t.Error("second client denied despite fresh bucket")
		}
	})

	t.Run("UpdateConfigResetsClients", func(t *testing.T) {
		limiter := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 1,
			Burst:             1,
		})

		limiter.Allow("10.0.0.1")
		if limiter.Allow("10.0.0.1") {
			t.Fatal("expected bucket exhausted")
		}

		limiter.UpdateConfig(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             100,
		})

		if !limiter.Allow("10.0.0.1") {
			t.Error("request denied after config update reset the buckets")
		}
	})

	t.Run("CleanupRemovesIdleClients", func(t *testing.T) {
		limiter := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 1,
			Burst:             1,
		})

		limiter.Allow("10.0.0.1")
		limiter.Allow("10.0.0.2")
		if got := limiter.ClientCount(); got != 2 {
			t.Fatalf("client count = %d, want 2", got)
		}

		limiter.mu.Lock()
		limiter.clients["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
		limiter.mu.Unlock()

		limiter.CleanupIdleClients()
		if got := limiter.ClientCount(); got != 1 {
			t.Errorf("client count after cleanup = %d, want 1", got)
		}
	})
}
