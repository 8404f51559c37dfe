package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock abstracts time for the sliding window so tests can drive it.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SlidingWindow admits at most limit calls in any trailing window.
// Callers are admitted one at a time in arrival order.
type SlidingWindow struct {
	limit  int
	window time.Duration
	clock  Clock

	turn  chan struct{} // held by the caller currently waiting for capacity
	mu    sync.Mutex
	stamp []time.Time // admission times inside the window, oldest first
}

// NewSlidingWindow creates a limiter for limit requests per window.
// A nil clock uses wall time.
func NewSlidingWindow(limit int, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = realClock{}
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		clock:  clock,
		turn:   make(chan struct{}, 1),
	}
}

// Wait blocks until the window has capacity, then records the call.
// Returns an error if the context is cancelled while waiting.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	if w == nil || w.limit <= 0 {
		return nil
	}

	select {
	case w.turn <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait: %w", ctx.Err())
	}
	defer func() { <-w.turn }()

	for {
		wait := w.reserve()
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter wait: %w", ctx.Err())
		case <-w.clock.After(wait):
		}
	}
}

// reserve records a call if there is room and returns zero, otherwise it
// returns how long until the oldest call leaves the window.
func (w *SlidingWindow) reserve() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	cutoff := now.Add(-w.window)
	drop := 0
	for drop < len(w.stamp) && !w.stamp[drop].After(cutoff) {
		drop++
	}
	w.stamp = w.stamp[drop:]

	if len(w.stamp) < w.limit {
		w.stamp = append(w.stamp, now)
		return 0
	}
	return w.stamp[0].Add(w.window).Sub(now)
}

// InWindow returns the number of calls admitted within the trailing window.
func (w *SlidingWindow) InWindow() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.clock.Now().Add(-w.window)
	n := 0
	for _, t := range w.stamp {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
