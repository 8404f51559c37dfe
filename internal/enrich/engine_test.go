package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const okResponse = `{"skills_fit": 8, "employer_quality": 6, "compensation": 5, "location_fit": 10, "growth": 4, "seniority_fit": 9, "rationale": "fit"}`

// scriptedProvider returns responses in order, then repeats the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	deadlines []time.Duration
}

func (p *scriptedProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	if dl, ok := ctx.Deadline(); ok {
		p.deadlines = append(p.deadlines, time.Until(dl).Round(time.Second))
	}
	if !strings.Contains(system, "skills_fit") {
		return "", errors.New("system prompt lacks criteria")
	}
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

// recordingSleep captures backoff delays without waiting.
type recordingSleep struct{ delays []time.Duration }

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

// steppingClock jumps forward by every requested wait.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func row(id, desc string) model.Row {
	return model.Row{Record: model.JobRecord{ID: id, Title: "Data Engineer", Company: "Acme", Description: desc}}
}

func newTestEngine(t *testing.T, cfg Config, p Provider, opts ...EngineOption) *Engine {
	t.Helper()
	cfg.APIKey = "k"
	e, err := NewEngine(cfg, p, discardLogger(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEnrich_ScoresInOrderAndSkipsEmptyDescriptions(t *testing.T) {
	p := &scriptedProvider{responses: []string{okResponse}}
	e := newTestEngine(t, Config{Tier: TierPaid}, p)

	rows, err := e.Enrich(context.Background(), []model.Row{row("a", "Python and Spark"), row("b", "  "), row("c", "Java")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.prompts) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(p.prompts))
	}
	if !strings.Contains(p.prompts[0], "Python and Spark") || !strings.Contains(p.prompts[1], "Java") {
		t.Errorf("calls out of order: %q", p.prompts)
	}
	if rows[0].Enrichment.Score != 7 || rows[2].Enrichment.Score != 7 {
		t.Errorf("unexpected scores %d %d", rows[0].Enrichment.Score, rows[2].Enrichment.Score)
	}
	if rows[1].Enrichment.Rationale != "no description" {
		t.Errorf("empty description should short-circuit, got %+v", rows[1].Enrichment)
	}
}

func TestEnrich_RetriesWithLinearBackoff(t *testing.T) {
	p := &scriptedProvider{
		responses: []string{"", "not json at all", okResponse},
		errs:      []error{errors.New("connection reset")},
	}
	s := &recordingSleep{}
	e := newTestEngine(t, Config{Tier: TierPaid, BaseDelay: time.Second, Timeout: 5 * time.Second}, p, WithSleep(s.sleep))

	rows, err := e.Enrich(context.Background(), []model.Row{row("a", "desc")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Enrichment.Score != 7 {
		t.Errorf("expected success on third attempt, got %+v", rows[0].Enrichment)
	}
	if len(s.delays) != 2 || s.delays[0] != time.Second || s.delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", s.delays)
	}
	want := []time.Duration{5 * time.Second, 15 * time.Second, 25 * time.Second}
	for i, d := range p.deadlines {
		if d != want[i] {
			t.Errorf("attempt %d timeout = %v, want %v", i+1, d, want[i])
		}
	}
}

func TestEnrich_FallsBackAfterExhaustion(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"skills_fit": 3}`}}
	s := &recordingSleep{}
	e := newTestEngine(t, Config{Tier: TierPaid, MaxAttempts: 3}, p, WithSleep(s.sleep))

	rows, err := e.Enrich(context.Background(), []model.Row{row("a", "desc"), row("b", "desc")})
	if err != nil {
		t.Fatalf("a scoring failure must not abort the batch: %v", err)
	}
	if len(p.prompts) != 6 {
		t.Errorf("expected 3 attempts per row, got %d calls", len(p.prompts))
	}
	for _, r := range rows {
		if r.Enrichment.Score != 0 || !strings.HasPrefix(r.Enrichment.Rationale, "error: ") {
			t.Errorf("unexpected fallback for %s: %+v", r.Record.ID, r.Enrichment)
		}
	}
}

func TestEnrich_FreeTierWaitsForWindow(t *testing.T) {
	clock := &steppingClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := &scriptedProvider{responses: []string{okResponse}}
	e := newTestEngine(t, Config{Tier: TierFree, RequestsPerWindow: 2, Window: time.Minute}, p, WithClock(clock))

	start := clock.Now()
	if _, err := e.Enrich(context.Background(), []model.Row{row("a", "d"), row("b", "d"), row("c", "d")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.prompts) != 3 {
		t.Fatalf("no request may be dropped, got %d calls", len(p.prompts))
	}
	if waited := clock.Now().Sub(start); waited != time.Minute {
		t.Errorf("third call should wait one window, waited %v", waited)
	}
}

func TestEnrich_PaidTierHasNoLimiter(t *testing.T) {
	e := newTestEngine(t, Config{Tier: TierPaid}, &scriptedProvider{responses: []string{okResponse}})
	if e.limiter != nil {
		t.Error("paid tier should not install a limiter")
	}
}

func TestEnrich_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{responses: []string{okResponse}}
	e := newTestEngine(t, Config{Tier: TierPaid}, p)

	if _, err := e.Enrich(ctx, []model.Row{row("a", "d")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(p.prompts) != 0 {
		t.Error("no call should be made after cancellation")
	}
}

func TestJobPrompt_IncludesStructuredFields(t *testing.T) {
	lo, hi, remote := 35000.0, 45000.0, true
	got, err := JobPrompt(model.JobRecord{
		Title: "Data Engineer", Company: "Acme", Location: "Milano",
		JobLevel: "Entry level", MinAmount: &lo, MaxAmount: &hi, Currency: "EUR", Interval: "yearly",
		IsRemote: &remote, CompanyIndustries: "Software", Description: "Build pipelines",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Title: Data Engineer", "Seniority: Entry level", "Compensation: 35000-45000 EUR (yearly)", "Remote: yes", "Industries: Software", "Build pipelines"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Job type:") {
		t.Error("empty fields should be omitted")
	}
}

func TestSystemPrompt_RendersWeights(t *testing.T) {
	got, err := SystemPrompt()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"skills_fit: Technical skills and role (40%)", "seniority_fit: Seniority fit (5%)", `"negative_signals"`} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
