package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// waitForPending blocks until n goroutines are parked on the clock.
func waitForPending(t *testing.T, c *fakeClock, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d pending timers, have %d", n, c.pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSlidingWindow_AdmitsUpToLimitImmediately(t *testing.T) {
	clock := newFakeClock()
	w := NewSlidingWindow(3, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if got := w.InWindow(); got != 3 {
		t.Fatalf("InWindow = %d, want 3", got)
	}
	if clock.pending() != 0 {
		t.Fatalf("expected no blocked waits, got %d", clock.pending())
	}
}

func TestSlidingWindow_BlocksUntilOldestCallLeavesWindow(t *testing.T) {
	clock := newFakeClock()
	w := NewSlidingWindow(2, time.Minute, clock)
	ctx := context.Background()

	_ = w.Wait(ctx)
	clock.Advance(20 * time.Second)
	_ = w.Wait(ctx)

	done := make(chan error, 1)
	go func() { done <- w.Wait(ctx) }()

	waitForPending(t, clock, 1)
	select {
	case <-done:
		t.Fatal("third call admitted before window had capacity")
	default:
	}

	// The first call leaves the window 60s after it was made, 40s from now.
	clock.Advance(40 * time.Second)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("third call never admitted")
	}
	if got := w.InWindow(); got != 2 {
		t.Fatalf("InWindow = %d, want 2", got)
	}
}

func TestSlidingWindow_ContextCancellation(t *testing.T) {
	clock := newFakeClock()
	w := NewSlidingWindow(1, time.Minute, clock)
	_ = w.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Wait(ctx) }()
	waitForPending(t, clock, 1)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from cancelled context, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled wait did not return")
	}
}

func TestSlidingWindow_ConcurrentCallersShareOneCap(t *testing.T) {
	clock := newFakeClock()
	w := NewSlidingWindow(2, time.Minute, clock)
	ctx := context.Background()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Wait(ctx); err == nil {
				admitted.Add(1)
			}
		}()
	}

	// Two admitted at once, the third parks on the clock.
	waitForPending(t, clock, 1)
	deadline := time.Now().Add(2 * time.Second)
	for admitted.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := admitted.Load(); got != 2 {
		t.Fatalf("admitted = %d before window rolled, want 2", got)
	}

	for admitted.Load() < 5 {
		if w.InWindow() > 2 {
			t.Fatalf("window holds %d calls, cap is 2", w.InWindow())
		}
		clock.Advance(time.Minute)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()
}

func TestSlidingWindow_ZeroLimitIsUnlimited(t *testing.T) {
	w := NewSlidingWindow(0, time.Minute, newFakeClock())
	for i := 0; i < 100; i++ {
		if err := w.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	var nilWindow *SlidingWindow
	if err := nilWindow.Wait(context.Background()); err != nil {
		t.Fatalf("nil window: %v", err)
	}
}

func TestPacer_SameSource_EnforcesMinDelay(t *testing.T) {
	p := NewPacer(100*time.Millisecond, nil)
	ctx := context.Background()

	if err := p.Wait(ctx, "hiring_cafe"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := p.Wait(ctx, "hiring_cafe"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	// Allow 80ms for timer jitter.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestPacer_DifferentSources_NoCrossBlocking(t *testing.T) {
	p := NewPacer(200*time.Millisecond, map[string]time.Duration{"jobspy": 0})
	ctx := context.Background()

	if err := p.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}

	start := time.Now()
	if err := p.Wait(ctx, "lever"); err != nil {
		t.Fatalf("lever wait: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx, "jobspy"); err != nil {
			t.Fatalf("jobspy wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected near-instant waits, got %v", elapsed)
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	p := NewPacer(5*time.Second, nil)
	_ = p.Wait(context.Background(), "greenhouse")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx, "greenhouse"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}
