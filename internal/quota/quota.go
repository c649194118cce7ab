// Package quota implements a sliding-window counter for client-side
// search budgeting. Paid search plans bill per request, so the client can
// be told to stop before the window is spent.
package quota

import (
	"sync"
	"time"
)

// Window tracks request timestamps inside a rolling interval.
type Window struct {
	mu     sync.Mutex
	stamps []time.Time
	limit  int
	span   time.Duration
}

// New returns a window allowing limit requests per span. A non-positive
// limit falls back to 10, a non-positive span to one minute.
func New(limit int, span time.Duration) *Window {
	if limit <= 0 {
		limit = 10
	}
	if span <= 0 {
		span = time.Minute
	}
	return &Window{limit: limit, span: span}
}

// Allow records one request if the window has room and reports whether
// it did.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.prune(now)

	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Remaining returns how many requests the window still admits.
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(time.Now())

	if rem := w.limit - len(w.stamps); rem > 0 {
		return rem
	}
	return 0
}

// ResetAt returns when the oldest recorded request leaves the window,
// freeing one slot. With an empty window it returns the current time.
func (w *Window) ResetAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(time.Now())

	if len(w.stamps) == 0 {
		return time.Now()
	}
	// stamps are appended in order, the oldest is first
	return w.stamps[0].Add(w.span)
}

func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	fresh := w.stamps[:0] // reuse underlying array
	for _, t := range w.stamps {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	w.stamps = fresh
}
