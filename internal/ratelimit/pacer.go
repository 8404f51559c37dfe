package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between requests to the same source.
// All fetchers hitting the same source should share one Pacer.
type Pacer struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter // key: source name
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewPacer creates a pacer spacing calls to one source by minDelay.
// overrides sets a per-source delay.
func NewPacer(minDelay time.Duration, overrides map[string]time.Duration) *Pacer {
	return &Pacer{
		limiters:  make(map[string]*rate.Limiter),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// Wait blocks until the source may be called again.
func (p *Pacer) Wait(ctx context.Context, source string) error {
	if p == nil {
		return nil
	}
	if err := p.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait for %s: %w", source, err)
	}
	return nil
}

func (p *Pacer) limiter(source string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[source]
	if !ok {
		delay := p.minDelay
		if d, ok := p.overrides[source]; ok {
			delay = d
		}
		limit := rate.Inf
		if delay > 0 {
			limit = rate.Every(delay)
		}
		l = rate.NewLimiter(limit, 1)
		p.limiters[source] = l
	}
	return l
}
