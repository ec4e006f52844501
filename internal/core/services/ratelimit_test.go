package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

func TestRateLimiter_AdmitsUpToMinuteQuota(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 5, PerHour: 100})

	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.Admit("actor-1"), "call %d should be admitted", i+1)
	}

	err := limiter.Admit("actor-1")

	var quota *domain.QuotaExceeded
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, 0, quota.RemainingMinute)
	assert.Greater(t, quota.RetryAfter.Seconds(), 0.0)
}

func TestRateLimiter_HourQuotaBindsToo(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 10, PerHour: 3})

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Admit("actor-1"))
	}

	err := limiter.Admit("actor-1")

	var quota *domain.QuotaExceeded
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, 0, quota.RemainingHour)
}

func TestRateLimiter_RejectionConsumesNothing(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 2, PerHour: 100})

	require.NoError(t, limiter.Admit("actor-1"))
	require.NoError(t, limiter.Admit("actor-1"))

	before := limiter.Stats("actor-1")
	var quota *domain.QuotaExceeded
	require.ErrorAs(t, limiter.Admit("actor-1"), &quota)
	after := limiter.Stats("actor-1")

	// The hourly window must not lose a unit to the rejected call.
	assert.Equal(t, before.RemainingHour, after.RemainingHour)
}

func TestRateLimiter_ActorsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 1, PerHour: 100})

	require.NoError(t, limiter.Admit("actor-1"))
	require.Error(t, limiter.Admit("actor-1"))

	assert.NoError(t, limiter.Admit("actor-2"))
}

func TestRateLimiter_Stats_DoesNotConsume(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 5, PerHour: 100})

	for i := 0; i < 10; i++ {
		stats := limiter.Stats("actor-1")
		assert.Equal(t, 5, stats.RemainingMinute)
	}

	require.NoError(t, limiter.Admit("actor-1"))
	assert.Equal(t, 4, limiter.Stats("actor-1").RemainingMinute)
}

func TestRateLimiter_ConcurrentAdmitNeverOversubscribes(t *testing.T) {
	const quota = 10
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: quota, PerHour: 1000})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit("actor-1") == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, admitted)
}

func TestRateLimiter_DefaultsApplied(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{})

	stats := limiter.Stats("actor-1")

	assert.Equal(t, DefaultPerMinute, stats.RemainingMinute)
	assert.Equal(t, DefaultPerHour, stats.RemainingHour)
}
