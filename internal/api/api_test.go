package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *store.SQLiteStore
	metrics *metrics.Manager
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rows := []model.Row{
		{Record: model.JobRecord{ID: "a", Title: "Go Engineer", Company: "Acme", ScrapingDate: "2025-06-30"},
			Enrichment: &model.EnrichmentResult{Score: 8, Relevant: true, Rationale: "good"}},
		{Record: model.JobRecord{ID: "b", Title: "Data Engineer", Company: "Beta", ScrapingDate: "2025-06-30"},
			Enrichment: &model.EnrichmentResult{Score: 5, Rationale: "meh"}},
		{Record: model.JobRecord{ID: "c", Title: "Intern", Company: "Gamma", ScrapingDate: "2025-06-29"}},
	}
	_, err = st.Upsert(context.Background(), model.Table{Columns: model.CanonicalColumns(), Rows: rows})
	require.NoError(t, err)

	m := metrics.NewManager()
	svc := annotation.NewService(st, func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }, discardLogger())
	return &fixture{store: st, metrics: m, router: NewServer(st, svc, m, discardLogger()).Router()}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type pageBody struct {
	Rows       []map[string]any `json:"rows"`
	TotalRows  int              `json:"total_rows"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	w := newFixture(t).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListJobs_DefaultsToUnviewedByScore(t *testing.T) {
	w := newFixture(t).do(t, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.TotalRows)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, "a", page.Rows[0]["id"])
	assert.Equal(t, "b", page.Rows[1]["id"])
	assert.Equal(t, "c", page.Rows[2]["id"], "unscored rows sort last")
}

func TestListJobs_Pagination(t *testing.T) {
	w := newFixture(t).do(t, http.MethodGet, "/jobs?page=2&page_size=2&order_by=title&order_dir=asc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "c", page.Rows[0]["id"])
}

func TestListJobs_InvalidParameters(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/jobs?page=0",
		"/jobs?page=x",
		"/jobs?page_size=100000",
		"/jobs?order_by=drop_table",
		"/jobs?order_dir=sideways",
		"/jobs?mode=archived",
	} {
		t.Run(target, func(t *testing.T) {
			w := f.do(t, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, codeValidation, decodeError(t, w).Code)
		})
	}
}

func TestSetFlags_MovesJobBetweenModes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/jobs/a/flags", `{"interested": true, "note": "call back"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","id":"a"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/jobs?mode=interested", "")
	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "a", page.Rows[0]["id"])
	assert.Equal(t, "call back", page.Rows[0]["notes"])
	assert.Equal(t, "2025-07-01T08:00:00Z", page.Rows[0]["interested_at"])

	w = f.do(t, http.MethodGet, "/jobs", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalRows)
}

func TestSetFlags_Errors(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("x", annotation.MaxNoteLength+1)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown id", "/jobs/zzz/flags", `{"viewed": true}`, http.StatusNotFound, codeNotFound},
		{"malformed body", "/jobs/a/flags", `{"viewed": `, http.StatusBadRequest, codeValidation},
		{"wrong type", "/jobs/a/flags", `{"viewed": "yes"}`, http.StatusBadRequest, codeValidation},
		{"note too long", "/jobs/a/flags", `{"note": "` + long + `"}`, http.StatusBadRequest, codeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

type brokenStore struct{}

func (brokenStore) Query(context.Context, store.Query) (store.Page, error) {
	return store.Page{}, io.ErrUnexpectedEOF
}

func TestListJobs_InternalErrorHidesCause(t *testing.T) {
	router := NewServer(brokenStore{}, nil, nil, discardLogger()).Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, codeInternal, body.Code)
	assert.NotContains(t, body.Message, "EOF")
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/jobs/a/flags", `{"viewed": true}`)
	f.do(t, http.MethodPost, "/jobs/b/flags", `{"viewed": true}`)

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(),
		`jobsync_api_http_requests_total{endpoint="/jobs/:id/flags",method="POST",status_code="200"} 2`)
}

func TestRouter_NoMetricsRouteWithoutManager(t *testing.T) {
	router := NewServer(brokenStore{}, nil, nil, discardLogger()).Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
