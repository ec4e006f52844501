package services

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// Default quota maxima. Both windows must have headroom for a query
// to be admitted.
const (
	DefaultPerMinute = 10
	DefaultPerHour   = 100
)

// RateLimitConfig holds the per-actor quota maxima.
type RateLimitConfig struct {
	// PerMinute is the maximum number of queries per rolling minute.
	PerMinute int

	// PerHour is the maximum number of queries per rolling hour.
	PerHour int
}

// actorWindows holds the two token buckets for one actor. The mutex
// makes check-then-consume atomic across both buckets so two
// concurrent calls can never both observe the last unit of quota.
type actorWindows struct {
	mu     sync.Mutex
	minute *rate.Limiter
	hour   *rate.Limiter
}

// RateLimiter enforces per-minute and per-hour query quotas per actor.
// Windows are in-memory and process scoped; quota resets on restart.
type RateLimiter struct {
	cfg RateLimitConfig

	mu     sync.Mutex
	actors map[string]*actorWindows
}

// NewRateLimiter creates a rate limiter. Non-positive maxima select
// the defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = DefaultPerHour
	}
	return &RateLimiter{
		cfg:    cfg,
		actors: make(map[string]*actorWindows),
	}
}

// windows returns the actor's buckets, creating them on first use.
func (l *RateLimiter) windows(actorID string) *actorWindows {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.actors[actorID]
	if !ok {
		w = &actorWindows{
			minute: rate.NewLimiter(rate.Limit(float64(l.cfg.PerMinute))/60.0, l.cfg.PerMinute),
			hour:   rate.NewLimiter(rate.Limit(float64(l.cfg.PerHour))/3600.0, l.cfg.PerHour),
		}
		l.actors[actorID] = w
	}
	return w
}

// Admit checks and consumes one unit of quota from both windows
// atomically. On rejection neither window is consumed, and the
// returned *domain.QuotaExceeded carries the remaining quota and
// retry guidance.
func (l *RateLimiter) Admit(actorID string) error {
	w := l.windows(actorID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	remMinute := remaining(w.minute, now)
	remHour := remaining(w.hour, now)

	if remMinute < 1 || remHour < 1 {
		exhausted := w.minute
		if remHour < 1 {
			exhausted = w.hour
		}
		return &domain.QuotaExceeded{
			RemainingMinute: remMinute,
			RemainingHour:   remHour,
			RetryAfter:      retryAfter(exhausted),
		}
	}

	// Both windows have headroom; consume from each. AllowN cannot
	// fail here because we hold the actor mutex.
	w.minute.AllowN(now, 1)
	w.hour.AllowN(now, 1)
	return nil
}

// Stats reports the actor's remaining quota without consuming any.
func (l *RateLimiter) Stats(actorID string) domain.RateLimitStats {
	w := l.windows(actorID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	return domain.RateLimitStats{
		RemainingMinute: remaining(w.minute, now),
		RemainingHour:   remaining(w.hour, now),
	}
}

// remaining is the number of whole quota units left in a bucket.
func remaining(lim *rate.Limiter, now time.Time) int {
	tokens := lim.TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// retryAfter estimates the wait until the exhausted bucket refills one
// unit. The probe reservation is cancelled so no quota is consumed.
func retryAfter(lim *rate.Limiter) time.Duration {
	r := lim.Reserve()
	d := r.Delay()
	r.Cancel()
	if d < 0 {
		return 0
	}
	return d
}
