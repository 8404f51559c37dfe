package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/enrich"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfigPath, EnvDatabase, EnvAPIKey, EnvFreeAPIKey, EnvLowScoreDays, EnvAbsoluteDays, EnvScoreThreshold} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

const minimal = `
search:
  query: data engineer
  locations: ["Milano, Lombardia"]
sources:
  jobspy:
    enabled: true
`

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database: /tmp/jobs.db
search:
  query: golang
  hours_old: 26
  results_wanted: 60
  locations: ["Milano, Lombardia", "Torino, Piemonte"]
sources:
  jobspy:
    enabled: true
    base_url: http://jobspy:8000
    sites: [indeed, linkedin]
    glassdoor: true
    timeout: 45s
  hiring_cafe:
    enabled: true
    date_filter: 3_days
    max_pages: 2
  boards:
    - name: Acme
      ats: lever
      token: acme
      enabled: true
ingest:
  concurrency: 2
  base_delay: 1s
rate_limit:
  min_delay: 2s
  source_overrides:
    hiring_cafe: 5s
filters:
  title_keywords: [engineer]
enrichment:
  enabled: true
  api_key: secret
  tier: paid
  window: 30s
  structured: false
retention:
  low_score_days: 3
notification:
  type: log
  min_score: 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/tmp/jobs.db" || cfg.Search.HoursOld != 26 || len(cfg.Search.Locations) != 2 {
		t.Errorf("unexpected database/search: %+v %+v", cfg.Database, cfg.Search)
	}
	if cfg.Sources.JobSpy.Timeout != 45*time.Second || !cfg.Sources.JobSpy.Glassdoor {
		t.Errorf("jobspy = %+v", cfg.Sources.JobSpy)
	}
	if cfg.Sources.HiringCafe.Query != "golang" || cfg.Sources.HiringCafe.URL != defaultHiringCafe {
		t.Errorf("hiring cafe defaults = %+v", cfg.Sources.HiringCafe)
	}
	if cfg.Ingest.Concurrency != 2 || cfg.Ingest.MaxAttempts != 3 || cfg.Ingest.BaseDelay != time.Second {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.RateLimit.MinDelayFor("hiring_cafe") != 5*time.Second || cfg.RateLimit.MinDelayFor("lever") != 2*time.Second {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if !cfg.Filters.Active() {
		t.Error("filters should be active")
	}
	e := cfg.Enrichment
	if e.Tier != enrich.TierPaid || e.Window != 30*time.Second || e.Structured || e.Model != enrich.DefaultModel {
		t.Errorf("enrichment = %+v", e)
	}
	if cfg.Retention.LowScoreDays != 3 || cfg.Retention.AbsoluteDays != 30 || cfg.Retention.ScoreThreshold != 5 {
		t.Errorf("retention = %+v", cfg.Retention)
	}
	if cfg.Notification.MinScore != 8 || cfg.API.Addr != ":8080" {
		t.Errorf("notification/api = %+v %+v", cfg.Notification, cfg.API)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "data/jobs.db" || cfg.Notification.Type != "log" || cfg.Notification.MinScore != enrich.RelevanceThreshold {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Enrichment.Structured || cfg.Enrichment.Enabled {
		t.Errorf("enrichment defaults = %+v", cfg.Enrichment)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabase, "/var/lib/jobsync.db")
	t.Setenv(EnvFreeAPIKey, "free-key")
	t.Setenv(EnvLowScoreDays, "10")
	t.Setenv(EnvScoreThreshold, "4")

	cfg, err := Load(writeConfig(t, minimal+"enrichment:\n  enabled: true\n  tier: paid\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/var/lib/jobsync.db" {
		t.Errorf("Database = %s", cfg.Database)
	}
	if cfg.Enrichment.APIKey != "free-key" || cfg.Enrichment.Tier != enrich.TierFree {
		t.Errorf("free key should force the free tier: %+v", cfg.Enrichment)
	}
	if cfg.Retention.LowScoreDays != 10 || cfg.Retention.AbsoluteDays != 30 || cfg.Retention.ScoreThreshold != 4 {
		t.Errorf("retention = %+v", cfg.Retention)
	}
}

func TestLoad_PaidKeyFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "paid-key")
	cfg, err := Load(writeConfig(t, minimal+"enrichment:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enrichment.APIKey != "paid-key" || cfg.Enrichment.Tier != enrich.TierPaid {
		t.Errorf("enrichment = %+v", cfg.Enrichment)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, minimal+"enrichment:\n  enabled: true\n  api_key: ${FREE_GEMINI_API_KEY}\n")
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("FREE_GEMINI_API_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvFreeAPIKey) })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enrichment.APIKey != "from-dotenv" {
		t.Errorf("APIKey = %q", cfg.Enrichment.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "search: [broken"},
		{"no sources", "search:\n  query: x\n"},
		{"jobspy without locations", "sources:\n  jobspy:\n    enabled: true\n"},
		{"bad duration", minimal + "ingest:\n  base_delay: soon\n"},
		{"bad date filter", minimal + "  hiring_cafe:\n    enabled: true\n    date_filter: fortnight\n"},
		{"unsupported ats", minimal + "  boards:\n    - {name: Acme, ats: workday, token: acme, enabled: true}\n"},
		{"slack without webhook", minimal + "notification:\n  type: slack\n"},
		{"unknown notifier", minimal + "notification:\n  type: email\n"},
		{"threshold out of range", minimal + "retention:\n  score_threshold: 11\n"},
		{"enrichment without key", minimal + "enrichment:\n  enabled: true\n"},
		{"unknown tier", minimal + "enrichment:\n  enabled: true\n  api_key: k\n  tier: gold\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("Load: expected error")
			}
		})
	}
}

func TestLoad_BadEnvInt(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAbsoluteDays, "thirty")
	if _, err := Load(writeConfig(t, minimal)); err == nil {
		t.Fatal("expected error for non-numeric retention env var")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	clearEnv(t)
	if got := ResolvePath(""); got != DefaultConfigPath {
		t.Errorf("default = %s", got)
	}
	t.Setenv(EnvConfigPath, "/etc/jobsync.yaml")
	if got := ResolvePath(""); got != "/etc/jobsync.yaml" {
		t.Errorf("env = %s", got)
	}
	if got := ResolvePath("flag.yaml"); got != "flag.yaml" {
		t.Errorf("flag = %s", got)
	}
}
