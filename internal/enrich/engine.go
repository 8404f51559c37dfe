// Package enrich scores job records with an external language model and
// aggregates the sub-scores locally.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/ratelimit"
	"github.com/amishk599/jobsync/internal/retry"
)

// Engine enriches rows one at a time behind a shared sliding-window limiter.
type Engine struct {
	cfg      Config
	provider Provider
	limiter  *ratelimit.SlidingWindow
	system   string
	sleep    func(ctx context.Context, d time.Duration) error
	metrics  *metrics.Manager
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock drives the limiter from clock.
func WithClock(clock ratelimit.Clock) EngineOption {
	return func(e *Engine) {
		if e.limiter != nil {
			e.limiter = ratelimit.NewSlidingWindow(e.cfg.RequestsPerWindow, e.cfg.Window, clock)
		}
	}
}

// WithSleep replaces the retry backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *Engine) { e.sleep = sleep }
}

// WithMetrics records enrichment outcomes on m.
func WithMetrics(m *metrics.Manager) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. The limiter is only installed on the free tier.
func NewEngine(cfg Config, provider Provider, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	cfg = cfg.WithDefaults()
	system, err := SystemPrompt()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		provider: provider,
		system:   system,
		logger:   logger,
	}
	if cfg.rateCapped() {
		e.limiter = ratelimit.NewSlidingWindow(cfg.RequestsPerWindow, cfg.Window, nil)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Enrich attaches a result to every row, in input order. Per-row scoring
// failures become fallback results; only cancellation stops the batch.
func (e *Engine) Enrich(ctx context.Context, rows []model.Row) ([]model.Row, error) {
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return rows, fmt.Errorf("enrich cancelled at row %d: %w", i, err)
		}
		res := e.score(ctx, rows[i].Record)
		rows[i].Enrichment = &res
	}
	return rows, nil
}

func (e *Engine) score(ctx context.Context, rec model.JobRecord) model.EnrichmentResult {
	if strings.TrimSpace(rec.Description) == "" {
		e.metrics.RecordEnrichment("skipped", 0)
		return NoDescription()
	}

	start := time.Now()
	prompt, err := JobPrompt(rec)
	if err == nil {
		var res model.EnrichmentResult
		res, err = retry.Do(ctx, e.policy(rec), func(ctx context.Context, attempt int) (model.EnrichmentResult, error) {
			return e.call(ctx, prompt, attempt)
		})
		if err == nil {
			e.metrics.RecordEnrichment("scored", time.Since(start))
			e.logger.Debug("job scored", "id", rec.ID, "score", res.Score, "relevant", res.Relevant)
			return res
		}
	}

	e.metrics.RecordEnrichment("failed", time.Since(start))
	e.logger.Warn("scoring failed, using fallback", "id", rec.ID, "title", rec.Title, "error", fmt.Errorf("%w: %w", model.ErrScoringFailed, err))
	return Fallback(err)
}

func (e *Engine) call(ctx context.Context, prompt string, attempt int) (model.EnrichmentResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return model.EnrichmentResult{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout+attemptTimeoutStep*time.Duration(attempt-1))
	defer cancel()

	raw, err := e.provider.Complete(callCtx, e.system, prompt)
	if err != nil {
		return model.EnrichmentResult{}, err
	}
	return parseResult(raw)
}

func (e *Engine) policy(rec model.JobRecord) retry.Policy {
	return retry.Policy{
		MaxAttempts: e.cfg.MaxAttempts,
		Backoff:     retry.Linear(e.cfg.BaseDelay),
		Sleep:       e.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			e.logger.Info("retrying scoring call", "id", rec.ID, "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

