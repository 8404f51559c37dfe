package enrich

import (
	"fmt"
	"time"
)

// Tier selects whether the scoring backend is rate-capped.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// Defaults for Config fields left zero.
const (
	DefaultBaseURL           = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel             = "gemini-flash-lite-latest"
	DefaultRequestsPerWindow = 15
	DefaultWindow            = 60 * time.Second
	DefaultTimeout           = 30 * time.Second
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = 1500 * time.Millisecond
)

// attemptTimeoutStep is added to the call timeout for every retry.
const attemptTimeoutStep = 10 * time.Second

// Config carries everything the engine needs to reach the scoring backend.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Tier    Tier

	// RequestsPerWindow caps calls per Window on the free tier.
	RequestsPerWindow int
	Window            time.Duration

	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration

	// Structured requests JSON-schema constrained output from the backend.
	Structured bool
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Tier == "" {
		c.Tier = TierFree
	}
	if c.RequestsPerWindow == 0 {
		c.RequestsPerWindow = DefaultRequestsPerWindow
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Validate checks that the config can drive an engine.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("enrich: api key is required")
	}
	switch c.Tier {
	case TierFree, TierPaid:
	default:
		return fmt.Errorf("enrich: unknown tier %q (want free or paid)", c.Tier)
	}
	if c.RequestsPerWindow < 0 {
		return fmt.Errorf("enrich: requests per window must be >= 0")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("enrich: max attempts must be >= 1")
	}
	return nil
}

// rateCapped reports whether calls go through the sliding window.
func (c Config) rateCapped() bool {
	return c.Tier == TierFree && c.RequestsPerWindow > 0
}
