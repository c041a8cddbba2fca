package usecase

import (
	"sync"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
)

// DefaultRateCeiling is the per-minute ceiling for commands without an
// entry in the per-command table
const DefaultRateCeiling = 10

// RateLimiter enforces per (user, command) fixed-window ceilings.
// Counters are created lazily and never destroyed; the active user ×
// command set is small enough for a single bot process.
type RateLimiter struct {
	ceilings map[string]int
	fallback int
	now      func() time.Time

	mu       sync.Mutex
	counters map[string]*domain.RateLimitCounter
}

// NewRateLimiter creates a limiter with per-command ceilings
func NewRateLimiter(ceilings map[string]int, fallback int) *RateLimiter {
	if fallback <= 0 {
		fallback = DefaultRateCeiling
	}
	return &RateLimiter{
		ceilings: ceilings,
		fallback: fallback,
		now:      time.Now,
		counters: make(map[string]*domain.RateLimitCounter),
	}
}

// Admit records one attempt for (userID, command). When over the ceiling
// it returns false and the wait until the window resets.
func (l *RateLimiter) Admit(userID, command string) (bool, time.Duration) {
	ceiling := l.fallback
	if c, ok := l.ceilings[command]; ok && c > 0 {
		ceiling = c
	}

	key := userID + "|" + command

	l.mu.Lock()
	defer l.mu.Unlock()

	counter, ok := l.counters[key]
	if !ok {
		counter = &domain.RateLimitCounter{}
		l.counters[key] = counter
	}
	return counter.Admit(l.now(), ceiling)
}
