/*
Package limiter enforces a minimum interval between accepted submissions.

It keeps one token-bucket limiter (rate.Limiter, burst 1) per key. A rejected
attempt consumes nothing, so the interval is always measured from the previous
accepted submission.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a key may stay unused before Prune drops it.
const idleAfter = 10 * time.Minute

// Keyed is a set of minimum-interval limiters addressed by key (the peer of a conversation).
type Keyed struct {
	// mu protects limits.
	mu sync.Mutex

	// limits stores one limiter per key.
	limits map[string]*entry

	// interval is the minimum time between two accepted events for the same key.
	interval time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyed creates a Keyed limiter allowing one event per interval for each key.
func NewKeyed(interval time.Duration) *Keyed {
	return &Keyed{
		limits:   make(map[string]*entry),
		interval: interval,
	}
}

// Interval returns the configured minimum interval.
func (k *Keyed) Interval() time.Duration {
	return k.interval
}

// Allow reports whether an event for key may happen at now, and records it if so.
func (k *Keyed) Allow(key string, now time.Time) bool {
	if k.interval <= 0 {
		return true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.limits[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(k.interval), 1)}
		k.limits[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// Prune removes keys that have been idle for a while and returns how many were removed.
func (k *Keyed) Prune(now time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	count := 0
	for key, e := range k.limits {
		if now.Sub(e.lastSeen) > idleAfter && e.limiter.TokensAt(now) >= float64(e.limiter.Burst()) {
			delete(k.limits, key)
			count++
		}
	}
	return count
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.limits)
}
