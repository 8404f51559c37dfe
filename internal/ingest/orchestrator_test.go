package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
	"github.com/amishk599/jobsync/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleep captures backoff delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func testOrchestrator(s *recordingSleep, opts ...OrchestratorOption) *Orchestrator {
	opts = append([]OrchestratorOption{WithPolicy(retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(DefaultBaseDelay),
		Sleep:       s.sleep,
	})}, opts...)
	return NewOrchestrator(discardLogger(), opts...)
}

func records(ids ...string) []source.Record {
	out := make([]source.Record, len(ids))
	for i, id := range ids {
		out[i] = source.JobSpyRecord{ID: id, Site: "indeed", Title: "Data Engineer " + id, Description: "desc " + id}
	}
	return out
}

// staticUnit always returns recs.
func staticUnit(name string, recs []source.Record) source.Unit {
	return source.Unit{Name: name, Source: "test", Fetch: func(context.Context, int) ([]source.Record, error) {
		return recs, nil
	}}
}

// failingUnit always fails and counts its calls.
func failingUnit(name string, calls *atomic.Int32) source.Unit {
	return source.Unit{Name: name, Source: "broken", Fetch: func(context.Context, int) ([]source.Record, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}}
}

func TestFetch_ExhaustsExactAttempts(t *testing.T) {
	s := &recordingSleep{}
	var calls atomic.Int32

	_, err := testOrchestrator(s).Fetch(context.Background(), failingUnit("jobspy:Milano", &calls))

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	var unavailable *SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "jobspy:Milano", unavailable.Unit)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, s.delays)
}

func TestFetch_EmptyResultIsRetried(t *testing.T) {
	s := &recordingSleep{}
	var attempts []int
	unit := source.Unit{Name: "hc", Source: "hiring_cafe", Fetch: func(_ context.Context, attempt int) ([]source.Record, error) {
		attempts = append(attempts, attempt)
		if attempt == 1 {
			return nil, nil
		}
		return records("a"), nil
	}}

	got, err := testOrchestrator(s).Fetch(context.Background(), unit)

	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestFetch_AlwaysEmptyIsUnavailable(t *testing.T) {
	_, err := testOrchestrator(&recordingSleep{}).Fetch(context.Background(), staticUnit("empty", nil))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}

func TestFetch_CancelledIsNotUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testOrchestrator(&recordingSleep{}).Fetch(ctx, staticUnit("x", nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, model.ErrSourceUnavailable)
}

func TestCollect_FailedUnitDoesNotAffectOthers(t *testing.T) {
	s := &recordingSleep{}
	var calls atomic.Int32
	m := metrics.NewManager()
	units := []source.Unit{
		staticUnit("first", records("a", "b")),
		failingUnit("broken", &calls),
		staticUnit("third", records("c")),
	}

	results := testOrchestrator(s, WithConcurrency(3), WithOrchestratorMetrics(m)).Collect(context.Background(), units)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "broken", "third"}, []string{results[0].Unit, results[1].Unit, results[2].Unit})
	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Records, 2)
	assert.ErrorIs(t, results[1].Err, model.ErrSourceUnavailable)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "c", results[2].Records[0].ID)
	assert.EqualValues(t, 3, calls.Load(), "the broken unit owns its own retry budget")
}
