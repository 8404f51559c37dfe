package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/ingest"
	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/retry"
	"github.com/amishk599/jobsync/internal/store"
)

var (
	dryRun      bool
	metricsFile string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion: fetch, score new jobs, store, prune",
	Long:  "Fetches every enabled source, scores jobs not seen before, upserts them into the database, sends the digest of new relevant jobs and applies retention. Exits 1 if storage fails or every source is unavailable.",
	RunE:  runIngest,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, ingestCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and score but write nothing and send no notifications")
		c.Flags().StringVar(&metricsFile, "metrics-file", "", "write a Prometheus textfile snapshot here after the run")
	}
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()

	logger.Info("config loaded",
		"database", cfg.Database,
		"query", cfg.Search.Query,
		"locations", len(cfg.Search.Locations),
		"boards", len(cfg.Sources.Boards),
		"enrichment", cfg.Enrichment.Enabled,
	)

	m := metrics.NewManager()
	httpClient := newHTTPClient()

	units := buildUnits(cfg, httpClient, logger)
	if len(units) == 0 {
		logger.Error("no sources to fetch")
		os.Exit(1)
	}

	enricher, err := setupEnricher(cfg, m, logger)
	if err != nil {
		logger.Error("failed to set up enrichment", "error", err)
		os.Exit(1)
	}

	opts := []ingest.RunnerOption{
		ingest.WithFilter(setupFilter(cfg)),
		ingest.WithRunnerMetrics(m),
	}
	var st ingest.Store
	if dryRun {
		logger.Info("dry-run mode: nothing will be written")
		st = store.NewNopStore()
	} else {
		sqlStore := openStore(cfg, logger)
		defer sqlStore.Close()
		st = sqlStore
		opts = append(opts,
			ingest.WithNotifier(setupNotifier(cfg, httpClient, logger)),
			ingest.WithRetention(cfg.Retention),
		)
	}

	orch := ingest.NewOrchestrator(logger,
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
		ingest.WithPolicy(retry.Policy{
			MaxAttempts: cfg.Ingest.MaxAttempts,
			Backoff:     retry.Exponential(cfg.Ingest.BaseDelay),
		}),
		ingest.WithOrchestratorMetrics(m),
	)
	runner := ingest.NewRunner(orch, units, enricher, st, logger, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, runErr := runner.Run(ctx)
	if err := m.WriteTextfile(metricsFile); err != nil {
		logger.Warn("failed to write metrics file", "path", metricsFile, "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
	if rep.Prune != nil {
		logger.Info("retention applied", "remaining", rep.Prune.Remaining)
	}
	return nil
}
