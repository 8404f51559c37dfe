package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobsync/internal/filter"
	"github.com/amishk599/jobsync/internal/merge"
	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/source"
	"github.com/amishk599/jobsync/internal/store"
)

// ErrNoSources is returned when every source unit failed.
var ErrNoSources = errors.New("every source unit failed")

// Store is the part of the job store a run writes to.
type Store interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, t model.Table) (store.UpsertResult, error)
	Prune(ctx context.Context, r store.Retention) (store.PruneReport, error)
	IsEmpty(ctx context.Context) (bool, error)
}

// Enricher attaches a scoring result to rows.
type Enricher interface {
	Enrich(ctx context.Context, rows []model.Row) ([]model.Row, error)
}

// Report summarises one run.
type Report struct {
	RunID       string
	Units       int
	FailedUnits int
	Fetched     int
	Kept        int // after filtering
	Unique      int
	New         int
	Existing    int
	Upsert      store.UpsertResult
	Notified    int
	Prune       *store.PruneReport
	Duration    time.Duration
}

// Runner wires the pipeline for one batch run.
type Runner struct {
	orch      *Orchestrator
	units     []source.Unit
	filter    model.JobFilter
	enricher  Enricher
	store     Store
	notifier  model.Notifier
	retention *store.Retention
	now       func() time.Time
	metrics   *metrics.Manager
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFilter drops records that do not match f before scoring.
func WithFilter(f model.JobFilter) RunnerOption {
	return func(r *Runner) { r.filter = f }
}

// WithNotifier sends newly stored jobs to n after a successful upsert.
func WithNotifier(n model.Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithRetention prunes the store after a successful run.
func WithRetention(ret store.Retention) RunnerOption {
	return func(r *Runner) { r.retention = &ret }
}

// WithNow overrides the clock used for scraping_date.
func WithNow(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithRunnerMetrics records run outcomes on m.
func WithRunnerMetrics(m *metrics.Manager) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a runner over units.
func NewRunner(orch *Orchestrator, units []source.Unit, enricher Enricher, st Store, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		orch:     orch,
		units:    units,
		enricher: enricher,
		store:    st,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one ingestion. Source and scoring failures are absorbed;
// storage failures, cancellation and a total source outage fail the run, and
// a failed run never prunes.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), Units: len(r.units)}
	logger := r.logger.With("run_id", rep.RunID)
	logger.Info("ingest run started", "units", len(r.units))

	err := r.run(ctx, logger, &rep)
	rep.Duration = time.Since(start)
	r.metrics.RecordRun(err == nil, rep.Duration)
	if err != nil {
		logger.Error("ingest run failed", "error", err, "duration", rep.Duration)
		return rep, err
	}
	logger.Info("ingest run finished",
		"fetched", rep.Fetched,
		"unique", rep.Unique,
		"new", rep.New,
		"inserted", rep.Upsert.Inserted,
		"updated", rep.Upsert.Updated,
		"failed_units", rep.FailedUnits,
		"duration", rep.Duration,
	)
	return rep, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, rep *Report) error {
	results := r.orch.Collect(ctx, r.units)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collecting: %w", err)
	}

	columns := model.CanonicalColumns()
	tables := make([]model.Table, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			rep.FailedUnits++
			continue
		}
		rep.Fetched += len(res.Records)
		kept := filter.Apply(r.filter, res.Records)
		rep.Kept += len(kept)
		tables = append(tables, merge.Align(kept, columns))
	}
	if rep.Units > 0 && rep.FailedUnits == rep.Units {
		return ErrNoSources
	}

	all := merge.Combine(tables...)
	if all.Columns == nil {
		all.Columns = columns
	}
	merge.StampScrapingDate(all, r.now().Format(model.DateLayout))
	rep.Unique = all.Len()
	if all.Len() == 0 {
		logger.Info("nothing to store")
		return r.prune(ctx, logger, rep)
	}

	firstRun, err := r.store.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("checking store: %w", err)
	}
	existing, err := r.store.ExistingIDs(ctx, all.IDs())
	if err != nil {
		return fmt.Errorf("looking up existing ids: %w", err)
	}
	fresh, seen := merge.Split(all, existing)
	rep.New, rep.Existing = fresh.Len(), seen.Len()
	logger.Info("split by identity", "new", rep.New, "existing", rep.Existing)

	if fresh.Len() > 0 {
		fresh.Rows, err = r.enricher.Enrich(ctx, fresh.Rows)
		if err != nil {
			return fmt.Errorf("enriching: %w", err)
		}
	}

	rep.Upsert, err = r.store.Upsert(ctx, merge.Combine(fresh, seen))
	if err != nil {
		return fmt.Errorf("writing jobs: %w", err)
	}
	r.metrics.RecordUpsert(rep.Upsert.Inserted, rep.Upsert.Updated)

	r.notify(logger, fresh, firstRun, rep)
	return r.prune(ctx, logger, rep)
}

// notify sends the new rows unless this run seeded an empty store.
func (r *Runner) notify(logger *slog.Logger, fresh model.Table, firstRun bool, rep *Report) {
	if r.notifier == nil || fresh.Len() == 0 {
		return
	}
	if firstRun {
		logger.Info("first run, skipping notifications", "new", fresh.Len())
		return
	}
	jobs := make([]model.StoredJob, len(fresh.Rows))
	for i, row := range fresh.Rows {
		jobs[i] = model.StoredJob{JobRecord: row.Record, Enrichment: row.Enrichment}
	}
	if err := r.notifier.Notify(jobs); err != nil {
		logger.Error("notification failed", "error", err)
		return
	}
	rep.Notified = len(jobs)
}

func (r *Runner) prune(ctx context.Context, logger *slog.Logger, rep *Report) error {
	if r.retention == nil {
		return nil
	}
	pr, err := r.store.Prune(ctx, *r.retention)
	if err != nil {
		return fmt.Errorf("pruning: %w", err)
	}
	rep.Prune = &pr
	r.metrics.RecordPrune(pr.RemovedLowScore, pr.RemovedStale, pr.Remaining)
	logger.Info("pruned",
		"removed", pr.Removed,
		"low_score", pr.RemovedLowScore,
		"stale", pr.RemovedStale,
		"remaining", pr.Remaining,
		"remaining_low_score", pr.RemainingLowScore,
		"remaining_stale", pr.RemainingStale,
	)
	return nil
}
