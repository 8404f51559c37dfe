package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/enrich"
	"github.com/amishk599/jobsync/internal/filter"
	"github.com/amishk599/jobsync/internal/ingest"
	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/notifier"
	"github.com/amishk599/jobsync/internal/ratelimit"
	"github.com/amishk599/jobsync/internal/source"
	"github.com/amishk599/jobsync/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsync",
	Short: "Job posting ingestion, scoring and review",
	Long:  "jobsync collects job postings from search and board sources, scores new ones with a language model, and keeps them in a local SQLite database for review.",
	// Running the binary bare performs one ingest run, so cron entries stay short.
	RunE:          runIngest,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSYNC_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
func loadConfig() (*config.Config, error) {
	return config.Load(config.ResolvePath(cfgPath))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// mustSetup loads config and a logger, exiting on failure.
func mustSetup() (*config.Config, *slog.Logger) {
	logger := setupLogger(debug)
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

func openStore(cfg *config.Config, logger *slog.Logger) *store.SQLiteStore {
	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Database, store.WithLogger(logger))
	if err != nil {
		logger.Error("failed to open store", "path", cfg.Database, "error", err)
		os.Exit(1)
	}
	return st
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier", "min_score", cfg.Notification.MinScore)
		return notifier.NewMinScore(notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), cfg.Notification.MinScore)
	case "none":
		return nil
	default:
		return notifier.NewMinScore(notifier.NewLogNotifier(logger), cfg.Notification.MinScore)
	}
}

func setupFilter(cfg *config.Config) model.JobFilter {
	if !cfg.Filters.Active() {
		return nil
	}
	return filter.NewTitleAndLocationFilter(cfg.Filters.TitleKeywords, cfg.Filters.Locations, cfg.Filters.TitleExcludeKeywords)
}

// buildUnits creates one fetch unit per enabled source target. All clients
// share one pacer so requests to the same source are spaced.
func buildUnits(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []source.Unit {
	pacer := ratelimit.NewPacer(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides)

	var units []source.Unit
	if cfg.Sources.JobSpy.Enabled {
		c := source.NewJobSpyClient(cfg.Sources.JobSpy.JobSpyConfig, httpClient, pacer, logger)
		units = append(units, c.Units(cfg.Search.Params(), cfg.Search.Locations)...)
		logger.Info("registered source", "source", "jobspy", "locations", len(cfg.Search.Locations))
	}
	if cfg.Sources.HiringCafe.Enabled {
		c := source.NewHiringCafeClient(cfg.Sources.HiringCafe.HiringCafeConfig, httpClient, pacer, logger)
		units = append(units, c.Unit())
		logger.Info("registered source", "source", "hiring_cafe", "query", cfg.Sources.HiringCafe.Query)
	}

	boards := source.NewBoardClient(httpClient, pacer, cfg.Ingest.Timeout)
	for _, b := range cfg.Sources.Boards {
		if !b.Enabled {
			continue
		}
		u, err := boards.Unit(source.Board{Name: b.Name, ATS: b.ATS, Token: b.Token})
		if err != nil {
			logger.Warn("unsupported board, skipping", "company", b.Name, "ats", b.ATS, "error", err)
			continue
		}
		units = append(units, u)
		logger.Info("registered source", "source", b.ATS, "company", b.Name)
	}
	return units
}

func setupEnricher(cfg *config.Config, m *metrics.Manager, logger *slog.Logger) (ingest.Enricher, error) {
	if !cfg.Enrichment.Enabled {
		logger.Info("enrichment disabled, new jobs are stored unscored")
		return enrich.Nop{}, nil
	}
	provider := enrich.NewOpenAIProvider(cfg.Enrichment.Config, &http.Client{})
	engine, err := enrich.NewEngine(cfg.Enrichment.Config, provider, logger, enrich.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	logger.Info("enrichment enabled",
		"model", cfg.Enrichment.Model,
		"tier", cfg.Enrichment.Tier,
		"structured", cfg.Enrichment.Structured,
	)
	return engine, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Minute}
}
