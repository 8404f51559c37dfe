// Package ingest runs one batch ingestion: collect from every source unit,
// merge, score new postings and write them to the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
	"github.com/amishk599/jobsync/internal/source"
)

// Defaults for source retries.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 3 * time.Second
	DefaultConcurrency = 4
)

// ErrEmptyResult marks an attempt that returned no records. It is retried
// like any other failure.
var ErrEmptyResult = errors.New("no results")

// SourceUnavailableError reports a unit that exhausted its retries.
type SourceUnavailableError struct {
	Unit     string
	Attempts int
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable after %d attempts: %v", e.Unit, e.Attempts, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Is matches model.ErrSourceUnavailable.
func (e *SourceUnavailableError) Is(target error) bool {
	return target == model.ErrSourceUnavailable
}

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Unit    string
	Source  string
	Records []model.JobRecord
	Err     error
}

// Orchestrator fetches source units with per-unit retry state.
type Orchestrator struct {
	policy      retry.Policy
	concurrency int
	metrics     *metrics.Manager
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPolicy replaces the retry policy. OnRetry is always overridden to log.
func WithPolicy(p retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.policy = p }
}

// WithConcurrency caps the number of units fetched at once.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithOrchestratorMetrics records attempts and unit outcomes on m.
func WithOrchestratorMetrics(m *metrics.Manager) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator with exponential backoff defaults.
func NewOrchestrator(logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		policy: retry.Policy{
			MaxAttempts: DefaultMaxAttempts,
			Backoff:     retry.Exponential(DefaultBaseDelay),
		},
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch runs one unit until it returns records or runs out of attempts.
func (o *Orchestrator) Fetch(ctx context.Context, u source.Unit) ([]model.JobRecord, error) {
	p := o.policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		o.logger.Warn("fetch attempt failed", "unit", u.Name, "attempt", attempt, "retry_in", delay, "error", err)
	}

	attempts := 0
	recs, err := retry.Do(ctx, p, func(ctx context.Context, attempt int) ([]source.Record, error) {
		attempts = attempt
		o.metrics.RecordAttempt(u.Source)
		o.logger.Debug("fetching", "unit", u.Name, "attempt", attempt)
		recs, err := u.Fetch(ctx, attempt)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, ErrEmptyResult
		}
		return recs, nil
	})
	if err != nil {
		if ctx.Err() == nil {
			var exhausted *retry.ExhaustedError
			if errors.As(err, &exhausted) {
				err = exhausted.Err
			}
			err = &SourceUnavailableError{Unit: u.Name, Attempts: attempts, Err: err}
		}
		o.metrics.RecordUnit(u.Source, false, 0)
		return nil, err
	}

	out := source.Records(recs)
	o.metrics.RecordUnit(u.Source, true, len(out))
	o.logger.Info("fetched", "unit", u.Name, "records", len(out))
	return out, nil
}

// Collect fetches every unit concurrently. Results keep the order of units;
// a failed unit never cancels the others.
func (o *Orchestrator) Collect(ctx context.Context, units []source.Unit) []UnitResult {
	results := make([]UnitResult, len(units))
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i, u := range units {
		g.Go(func() error {
			recs, err := o.Fetch(ctx, u)
			results[i] = UnitResult{Unit: u.Name, Source: u.Source, Records: recs, Err: err}
			if err != nil {
				o.logger.Error("source unit skipped", "unit", u.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
