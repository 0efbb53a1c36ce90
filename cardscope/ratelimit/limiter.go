package ratelimit

import (
	"context"
	"sync"
	"time"
)

// acquireBuffer pads each computed wait so the window has definitely slid
// open when the caller retries.
const acquireBuffer = 100 * time.Millisecond

// Limiter is a sliding-window rate limiter. It tracks the timestamps of
// granted slots and refuses new ones while max are still inside the window.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	stamps []time.Time
}

// Status is a point-in-time snapshot for operational reporting.
type Status struct {
	Used          int           `json:"used"`
	Max           int           `json:"max"`
	Window        time.Duration `json:"-"`
	WindowSec     float64       `json:"window_sec"`
	RetryAfter    time.Duration `json:"-"`
	RetryAfterSec float64       `json:"retry_after_sec"`
}

func New(max int, window time.Duration) *Limiter {
	return NewWithClock(max, window, time.Now)
}

// NewWithClock injects the clock, used by tests to step time deterministically.
func NewWithClock(max int, window time.Duration, now func() time.Time) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{max: max, window: window, now: now}
}

// TryAcquire claims a slot without blocking. It returns false when the window
// is full.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// RetryAfter reports how long until the oldest in-window slot expires. Zero
// means a slot is available now.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	if len(l.stamps) < l.max {
		return 0
	}
	return l.stamps[0].Add(l.window).Sub(now)
}

// Acquire blocks until a slot is granted or the context ends. Each failed
// attempt sleeps for the remaining window time plus a small buffer.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}

		wait := l.RetryAfter()
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait + acquireBuffer)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Status snapshots current usage for the usage endpoint.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	st := Status{
		Used:      len(l.stamps),
		Max:       l.max,
		Window:    l.window,
		WindowSec: l.window.Seconds(),
	}
	if len(l.stamps) >= l.max {
		st.RetryAfter = l.stamps[0].Add(l.window).Sub(now)
		st.RetryAfterSec = st.RetryAfter.Seconds()
	}
	return st
}

func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.stamps) && !l.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
	}
}
