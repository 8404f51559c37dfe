package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
	"github.com/amishk599/jobsync/internal/schema"
)

// DefaultChunkSize bounds how many rows one upsert transaction writes.
const DefaultChunkSize = 2000

var indexedColumns = []string{"llm_score", "date_posted", "company", "title", "scraping_date"}

// SQLiteStore persists jobs in a single SQLite table keyed by id.
type SQLiteStore struct {
	db        *sql.DB
	schema    *schema.Registry
	chunkSize int
	now       func() time.Time
	policy    retry.Policy
	logger    *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithClock sets the clock used for retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// WithRetryPolicy replaces the storage retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *SQLiteStore) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and migrates
// the jobs table to the current column set.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer per run; a single connection also keeps pragmas consistent.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:        db,
		chunkSize: DefaultChunkSize,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.MaxAttempts == 0 {
		s.policy = s.defaultPolicy()
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// defaultPolicy retries a failed storage operation three times, waiting
// 0.1s·2^attempt after each failed attempt (200ms, 400ms, 800ms).
func (s *SQLiteStore) defaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		Backoff:     storageBackoff,
		Retryable: func(err error) bool {
			return !errors.Is(err, model.ErrSchemaConflict) && !errors.Is(err, context.Canceled)
		},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.logger.Warn("retrying storage operation", "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

func storageBackoff(attempt int) time.Duration {
	return retry.Exponential(100*time.Millisecond)(attempt + 1)
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		cols := append(model.CanonicalColumns(), model.AnnotationColumns()...)
		defs := make([]string, 0, len(cols)+1)
		for _, c := range cols {
			defs = append(defs, quoteIdent(c)+" "+model.ColumnTypeOf(c).SQL())
		}
		defs = append(defs, `PRIMARY KEY("id")`)
		if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS jobs ("+strings.Join(defs, ", ")+")"); err != nil {
			return fmt.Errorf("creating jobs table: %w", err)
		}
		s.schema = schema.NewRegistry(cols)
	} else {
		final, upgrade := schema.Reconcile(existing, model.CanonicalColumns(), model.AnnotationColumns())
		if upgrade {
			if err := s.addColumns(ctx, final[len(existing):]); err != nil {
				return err
			}
		}
		s.schema = schema.NewRegistry(final)
	}

	for _, c := range indexedColumns {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_jobs_%s ON jobs(%s)", c, quoteIdent(c))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index on %s: %w", c, err)
		}
	}
	return nil
}

func (s *SQLiteStore) tableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('jobs')")
	if err != nil {
		return nil, fmt.Errorf("reading jobs columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading jobs columns: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// addColumns applies an additive migration. Existing rows read NULL. Columns
// the table already has are skipped, so a partly applied migration can be
// retried.
func (s *SQLiteStore) addColumns(ctx context.Context, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	if err := schema.Validate(cols); err != nil {
		return err
	}
	stored, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if slices.Contains(stored, c) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE jobs ADD COLUMN %s %s", quoteIdent(c), model.ColumnTypeOf(c).SQL())
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding column %s: %w", c, err)
		}
	}
	s.logger.Info("schema upgraded", "added", cols)
	return nil
}

// Columns returns the columns currently known to the store.
func (s *SQLiteStore) Columns() []string {
	return s.schema.Columns()
}

// ExistingIDs returns the subset of ids already stored.
func (s *SQLiteStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool)
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		if err := lookupIDs(ctx, s.db, ids[start:end], found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// Get returns one stored job.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.StoredJob, error) {
	cols := model.AllColumns()
	row := s.db.QueryRowContext(ctx, "SELECT "+selectList(cols)+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row, cols)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredJob{}, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.StoredJob{}, fmt.Errorf("loading job %s: %w", id, err)
	}
	return job, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func lookupIDs(ctx context.Context, q queryer, ids []string, found map[string]bool) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, "SELECT id FROM jobs WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("looking up existing ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("looking up existing ids: %w", err)
		}
		found[id] = true
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner, cols []string) (model.StoredJob, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return model.StoredJob{}, err
	}
	var job model.StoredJob
	for i, c := range cols {
		job.Set(c, vals[i])
	}
	return job, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func selectList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
