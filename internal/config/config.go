// Package config loads jobsync settings from YAML, a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobsync/internal/enrich"
	"github.com/amishk599/jobsync/internal/source"
	"github.com/amishk599/jobsync/internal/store"
)

// Environment variables that override the file.
const (
	EnvConfigPath      = "JOBSYNC_CONFIG"
	EnvDatabase        = "JOBSYNC_DB"
	EnvAPIKey          = "GEMINI_API_KEY"
	EnvFreeAPIKey      = "FREE_GEMINI_API_KEY"
	EnvLowScoreDays    = "LOW_SCORE_RETENTION_DAYS"
	EnvAbsoluteDays    = "ABSOLUTE_RETENTION_DAYS"
	EnvScoreThreshold  = "SCORE_THRESHOLD"
	DefaultConfigPath  = "config.yaml"
	defaultDatabase    = "data/jobs.db"
	defaultJobSpyURL   = "http://localhost:8000"
	defaultHiringCafe  = "https://hiring.cafe/api/search-jobs"
	defaultAPIAddr     = ":8080"
	defaultNotifyScore = enrich.RelevanceThreshold
)

// Config is the root configuration.
type Config struct {
	Database     string
	Search       SearchConfig
	Sources      SourcesConfig
	Ingest       IngestConfig
	RateLimit    RateLimitConfig
	Filters      FilterConfig
	Enrichment   EnrichmentConfig
	Retention    store.Retention
	Notification NotificationConfig
	API          APIConfig
}

// SearchConfig holds the parameters shared by the search-style sources.
type SearchConfig struct {
	Query         string   `yaml:"query"`
	HoursOld      int      `yaml:"hours_old"`
	ResultsWanted int      `yaml:"results_wanted"`
	Locations     []string `yaml:"locations"`
}

// Params returns the search parameters for source clients.
func (s SearchConfig) Params() source.Params {
	return source.Params{Query: s.Query, HoursOld: s.HoursOld, ResultsWanted: s.ResultsWanted}
}

// SourcesConfig lists every source and whether it runs.
type SourcesConfig struct {
	JobSpy     JobSpyConfig
	HiringCafe HiringCafeConfig
	Boards     []BoardConfig
}

// JobSpyConfig configures the jobspy-api client.
type JobSpyConfig struct {
	Enabled bool
	source.JobSpyConfig
}

// HiringCafeConfig configures the hiring.cafe client.
type HiringCafeConfig struct {
	Enabled bool
	source.HiringCafeConfig
}

// BoardConfig describes one company board.
type BoardConfig struct {
	Name    string `yaml:"name"`
	ATS     string `yaml:"ats"`
	Token   string `yaml:"token"`
	Enabled bool   `yaml:"enabled"`
}

// IngestConfig controls source retries and concurrency.
type IngestConfig struct {
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration // board request timeout
}

// RateLimitConfig spaces requests to the same source.
type RateLimitConfig struct {
	MinDelay        time.Duration
	SourceOverrides map[string]time.Duration
}

// MinDelayFor returns the configured delay for source, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(src string) time.Duration {
	if d, ok := r.SourceOverrides[src]; ok {
		return d
	}
	return r.MinDelay
}

// FilterConfig holds the optional keyword filter applied before scoring.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
}

// Active reports whether any filter is configured.
func (f FilterConfig) Active() bool {
	return len(f.TitleKeywords)+len(f.TitleExcludeKeywords)+len(f.Locations) > 0
}

// EnrichmentConfig controls the scoring backend.
type EnrichmentConfig struct {
	Enabled bool
	enrich.Config
}

// NotificationConfig controls the digest of new relevant jobs.
type NotificationConfig struct {
	Type       string // "log", "slack" or "none"
	WebhookURL string
	MinScore   int
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Addr string
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Database     string             `yaml:"database"`
	Search       SearchConfig       `yaml:"search"`
	Sources      rawSourcesConfig   `yaml:"sources"`
	Ingest       rawIngestConfig    `yaml:"ingest"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Filters      FilterConfig       `yaml:"filters"`
	Enrichment   rawEnrichConfig    `yaml:"enrichment"`
	Retention    rawRetention       `yaml:"retention"`
	Notification rawNotification    `yaml:"notification"`
	API          APIConfig          `yaml:"api"`
}

type rawSourcesConfig struct {
	JobSpy     rawJobSpyConfig     `yaml:"jobspy"`
	HiringCafe rawHiringCafeConfig `yaml:"hiring_cafe"`
	Boards     []BoardConfig       `yaml:"boards"`
}

type rawJobSpyConfig struct {
	Enabled       bool     `yaml:"enabled"`
	BaseURL       string   `yaml:"base_url"`
	APIKey        string   `yaml:"api_key"`
	Sites         []string `yaml:"sites"`
	Glassdoor     bool     `yaml:"glassdoor"`
	CountryIndeed string   `yaml:"country_indeed"`
	Countries     []string `yaml:"countries"`
	Distance      int      `yaml:"distance"`
	Timeout       string   `yaml:"timeout"`
}

type rawHiringCafeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Query      string `yaml:"query"`
	DateFilter string `yaml:"date_filter"`
	MaxPages   int    `yaml:"max_pages"`
	Timeout    string `yaml:"timeout"`
}

type rawIngestConfig struct {
	Concurrency int    `yaml:"concurrency"`
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
	Timeout     string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawEnrichConfig struct {
	Enabled           bool   `yaml:"enabled"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	APIKey            string `yaml:"api_key"`
	Tier              string `yaml:"tier"`
	RequestsPerWindow int    `yaml:"requests_per_window"`
	Window            string `yaml:"window"`
	Timeout           string `yaml:"timeout"`
	MaxAttempts       int    `yaml:"max_attempts"`
	BaseDelay         string `yaml:"base_delay"`
	Structured        *bool  `yaml:"structured"`
}

type rawRetention struct {
	LowScoreDays   *int `yaml:"low_score_days"`
	AbsoluteDays   *int `yaml:"absolute_days"`
	ScoreThreshold *int `yaml:"score_threshold"`
}

type rawNotification struct {
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url"`
	MinScore   *int   `yaml:"min_score"`
}

// ResolvePath picks the config file: flag value, then JOBSYNC_CONFIG, then config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadDotEnv loads .env from the working directory and from dir. Variables
// already set are kept and a missing file is not an error.
func LoadDotEnv(dir string) error {
	for _, p := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config file at path, applies environment
// overrides, validates it, and returns Config.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	var errs durationParser

	cfg := &Config{
		Database: raw.Database,
		Search:   raw.Search,
		Sources: SourcesConfig{
			JobSpy: JobSpyConfig{
				Enabled: raw.Sources.JobSpy.Enabled,
				JobSpyConfig: source.JobSpyConfig{
					BaseURL:       raw.Sources.JobSpy.BaseURL,
					APIKey:        raw.Sources.JobSpy.APIKey,
					Sites:         raw.Sources.JobSpy.Sites,
					Glassdoor:     raw.Sources.JobSpy.Glassdoor,
					CountryIndeed: raw.Sources.JobSpy.CountryIndeed,
					Countries:     raw.Sources.JobSpy.Countries,
					Distance:      raw.Sources.JobSpy.Distance,
					Timeout:       errs.parse("sources.jobspy.timeout", raw.Sources.JobSpy.Timeout, 60*time.Second),
				},
			},
			HiringCafe: HiringCafeConfig{
				Enabled: raw.Sources.HiringCafe.Enabled,
				HiringCafeConfig: source.HiringCafeConfig{
					URL:        raw.Sources.HiringCafe.URL,
					Query:      raw.Sources.HiringCafe.Query,
					DateFilter: raw.Sources.HiringCafe.DateFilter,
					MaxPages:   raw.Sources.HiringCafe.MaxPages,
					Timeout:    errs.parse("sources.hiring_cafe.timeout", raw.Sources.HiringCafe.Timeout, 30*time.Second),
				},
			},
			Boards: raw.Sources.Boards,
		},
		Ingest: IngestConfig{
			Concurrency: raw.Ingest.Concurrency,
			MaxAttempts: raw.Ingest.MaxAttempts,
			BaseDelay:   errs.parse("ingest.base_delay", raw.Ingest.BaseDelay, 3*time.Second),
			Timeout:     errs.parse("ingest.timeout", raw.Ingest.Timeout, 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			MinDelay:        errs.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, time.Second),
			SourceOverrides: make(map[string]time.Duration),
		},
		Filters: raw.Filters,
		Enrichment: EnrichmentConfig{
			Enabled: raw.Enrichment.Enabled,
			Config: enrich.Config{
				APIKey:            raw.Enrichment.APIKey,
				BaseURL:           raw.Enrichment.BaseURL,
				Model:             raw.Enrichment.Model,
				Tier:              enrich.Tier(strings.ToLower(raw.Enrichment.Tier)),
				RequestsPerWindow: raw.Enrichment.RequestsPerWindow,
				Window:            errs.parse("enrichment.window", raw.Enrichment.Window, 0),
				Timeout:           errs.parse("enrichment.timeout", raw.Enrichment.Timeout, 0),
				MaxAttempts:       raw.Enrichment.MaxAttempts,
				BaseDelay:         errs.parse("enrichment.base_delay", raw.Enrichment.BaseDelay, 0),
				Structured:        raw.Enrichment.Structured == nil || *raw.Enrichment.Structured,
			},
		},
		Retention: store.DefaultRetention(),
		Notification: NotificationConfig{
			Type:       raw.Notification.Type,
			WebhookURL: raw.Notification.WebhookURL,
			MinScore:   defaultNotifyScore,
		},
		API: raw.API,
	}
	for src, d := range raw.RateLimit.SourceOverrides {
		cfg.RateLimit.SourceOverrides[src] = errs.parse(fmt.Sprintf("rate_limit.source_overrides[%q]", src), d, 0)
	}
	if errs.err != nil {
		return nil, errs.err
	}

	if raw.Retention.LowScoreDays != nil {
		cfg.Retention.LowScoreDays = *raw.Retention.LowScoreDays
	}
	if raw.Retention.AbsoluteDays != nil {
		cfg.Retention.AbsoluteDays = *raw.Retention.AbsoluteDays
	}
	if raw.Retention.ScoreThreshold != nil {
		cfg.Retention.ScoreThreshold = *raw.Retention.ScoreThreshold
	}
	if raw.Notification.MinScore != nil {
		cfg.Notification.MinScore = *raw.Notification.MinScore
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Sources.JobSpy.BaseURL == "" {
		cfg.Sources.JobSpy.BaseURL = defaultJobSpyURL
	}
	if cfg.Sources.HiringCafe.URL == "" {
		cfg.Sources.HiringCafe.URL = defaultHiringCafe
	}
	if cfg.Sources.HiringCafe.Query == "" {
		cfg.Sources.HiringCafe.Query = cfg.Search.Query
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.MaxAttempts == 0 {
		cfg.Ingest.MaxAttempts = 3
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = defaultAPIAddr
	}
	cfg.Enrichment.Config = cfg.Enrichment.Config.WithDefaults()
}

// applyEnv overlays the environment on top of the file.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvFreeAPIKey); v != "" {
		cfg.Enrichment.APIKey = v
		cfg.Enrichment.Tier = enrich.TierFree
	} else if v := os.Getenv(EnvAPIKey); v != "" && cfg.Enrichment.APIKey == "" {
		cfg.Enrichment.APIKey = v
		cfg.Enrichment.Tier = enrich.TierPaid
	}

	ints := []struct {
		env string
		dst *int
	}{
		{EnvLowScoreDays, &cfg.Retention.LowScoreDays},
		{EnvAbsoluteDays, &cfg.Retention.AbsoluteDays},
		{EnvScoreThreshold, &cfg.Retention.ScoreThreshold},
	}
	for _, e := range ints {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", e.env, v, err)
		}
		*e.dst = n
	}
	return nil
}

func validate(cfg *Config) error {
	enabled := 0
	if cfg.Sources.JobSpy.Enabled {
		enabled++
		if len(cfg.Search.Locations) == 0 {
			return fmt.Errorf("search.locations is required when sources.jobspy is enabled")
		}
	}
	if cfg.Sources.HiringCafe.Enabled {
		enabled++
		if f := cfg.Sources.HiringCafe.DateFilter; f != "" && !source.ValidHiringCafeDateFilter(f) {
			return fmt.Errorf("sources.hiring_cafe.date_filter %q is not supported", f)
		}
	}
	for _, b := range cfg.Sources.Boards {
		if !b.Enabled {
			continue
		}
		enabled++
		if b.Name == "" || b.Token == "" {
			return fmt.Errorf("boards: name and token are required (got %q/%q)", b.Name, b.Token)
		}
		if !slices.Contains(source.SupportedATS, b.ATS) {
			return fmt.Errorf("boards: %s has unsupported ats %q (want one of %s)", b.Name, b.ATS, strings.Join(source.SupportedATS, ", "))
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	r := cfg.Retention
	if r.LowScoreDays < 0 || r.AbsoluteDays < 0 {
		return fmt.Errorf("retention days must be >= 0, got %d/%d", r.LowScoreDays, r.AbsoluteDays)
	}
	if r.ScoreThreshold < 0 || r.ScoreThreshold > 10 {
		return fmt.Errorf("retention.score_threshold must be between 0 and 10, got %d", r.ScoreThreshold)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or none, got %q", cfg.Notification.Type)
	}

	if cfg.Enrichment.Enabled {
		if err := cfg.Enrichment.Validate(); err != nil {
			return fmt.Errorf("enrichment: %w (set %s or %s)", err, EnvFreeAPIKey, EnvAPIKey)
		}
	}
	return nil
}

// durationParser keeps the first parse error so fromRaw stays linear.
type durationParser struct {
	err error
}

func (p *durationParser) parse(field, raw string, def time.Duration) time.Duration {
	if raw == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s %q: %w", field, raw, err)
		return def
	}
	return d
}
