// Package throttle provides per-domain adaptive request spacing.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/telemetry"
)

// Default spacing applied when no configuration overrides are given.
const (
	DefaultInterval = 2 * time.Second
	MaxInterval     = 10 * time.Second
)

// Throttle tracks last-request time and failure counts per domain and blocks
// callers until it is safe to issue the next request. The throttle is
// advisory: concurrent workers may observe slightly stale state, which is
// acceptable because the interval computation is monotone in failures.
type Throttle struct {
	mu           sync.Mutex
	baseInterval time.Duration
	maxInterval  time.Duration
	lastRequest  map[string]time.Time
	failures     map[string]int
	clock        harvester.Clock
}

// New creates a Throttle. Non-positive durations fall back to the defaults.
func New(base, max time.Duration, clk harvester.Clock) *Throttle {
	if base <= 0 {
		base = DefaultInterval
	}
	if max <= 0 {
		max = MaxInterval
	}
	return &Throttle{
		baseInterval: base,
		maxInterval:  max,
		lastRequest:  make(map[string]time.Time),
		failures:     make(map[string]int),
		clock:        clk,
	}
}

// Wait blocks until a request to url's domain is permitted, respecting the
// context. The slot is reserved before sleeping so concurrent callers for the
// same domain queue up instead of stampeding.
func (t *Throttle) Wait(ctx context.Context, url string) error {
	domain := harvester.Domain(url)

	t.mu.Lock()
	now := t.clock.Now()
	interval := t.intervalLocked(domain)
	var delay time.Duration
	if last, ok := t.lastRequest[domain]; ok {
		if next := last.Add(interval); next.After(now) {
			delay = next.Sub(now)
		}
	}
	t.lastRequest[domain] = now.Add(delay)
	t.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	telemetry.ObserveThrottleDelay(domain, delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("throttle wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RecordSuccess decrements the domain's failure counter by one, floored at
// zero. Gradual recovery avoids oscillating between fully throttled and fully
// open after a single lucky response.
func (t *Throttle) RecordSuccess(url string) {
	domain := harvester.Domain(url)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failures[domain] > 0 {
		t.failures[domain]--
	}
}

// RecordFailure increments the domain's failure counter, lengthening future
// waits.
func (t *Throttle) RecordFailure(url string) {
	domain := harvester.Domain(url)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[domain]++
}

// Interval reports the current effective spacing for a domain:
// base * (1 + 0.5*failures), capped at the maximum.
func (t *Throttle) Interval(url string) time.Duration {
	domain := harvester.Domain(url)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intervalLocked(domain)
}

func (t *Throttle) intervalLocked(domain string) time.Duration {
	multiplier := 1 + 0.5*float64(t.failures[domain])
	interval := time.Duration(float64(t.baseInterval) * multiplier)
	if interval > t.maxInterval {
		interval = t.maxInterval
	}
	return interval
}
