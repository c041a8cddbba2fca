package domain

import "time"

// RateLimitWindow is the fixed length of one rate-limit window
const RateLimitWindow = 60 * time.Second

// RateLimitCounter tracks command usage for one (user, command) pair
// inside the current window
type RateLimitCounter struct {
	Count   int
	ResetAt time.Time
}

// Admit records one attempt. It returns true when the attempt is within
// the ceiling, or false plus the wait until the window resets.
func (c *RateLimitCounter) Admit(now time.Time, ceiling int) (bool, time.Duration) {
	if now.After(c.ResetAt) {
		c.Count = 0
		c.ResetAt = now.Add(RateLimitWindow)
	}
	if c.Count >= ceiling {
		return false, c.ResetAt.Sub(now)
	}
	c.Count++
	return true, 0
}
