package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// MaxPageSize caps Query.PageSize.
const MaxPageSize = 500

// Mode selects which jobs a query returns, keyed on the user's flags.
type Mode int

const (
	ModeNotViewed Mode = iota
	ModeViewed
	ModeInterested
	ModeApplied
)

var modeNames = [...]string{"not_viewed", "viewed", "interested", "applied"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeNotViewed, ModeViewed, ModeInterested, ModeApplied}
}

// ParseMode parses a mode name such as "not_viewed".
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, model.Validationf("unknown mode %q", s)
}

func unset(col string) string {
	return fmt.Sprintf("(%s IS NULL OR %s = 0)", col, col)
}

// predicate returns the WHERE clause for m. Every stored row falls in exactly
// one of not_viewed, viewed, interested and applied.
func (m Mode) predicate() (string, error) {
	switch m {
	case ModeNotViewed:
		return unset("viewed") + " AND " + unset("interested") + " AND " + unset("applied"), nil
	case ModeViewed:
		return "viewed = 1 AND " + unset("interested") + " AND " + unset("applied"), nil
	case ModeInterested:
		return "interested = 1 AND " + unset("applied"), nil
	case ModeApplied:
		return "applied = 1", nil
	default:
		return "", model.Validationf("unknown mode %d", int(m))
	}
}

// OrderDir is a sort direction.
type OrderDir string

const (
	Asc  OrderDir = "ASC"
	Desc OrderDir = "DESC"
)

// ParseOrderDir parses "asc" or "desc" case-insensitively.
func ParseOrderDir(s string) (OrderDir, error) {
	switch strings.ToUpper(s) {
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return "", model.Validationf("order direction must be asc or desc, got %q", s)
}

// Query describes one page of jobs.
type Query struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir OrderDir
	Mode     Mode
}

// DefaultQuery is the first page of unviewed jobs, best score first.
func DefaultQuery() Query {
	return Query{Page: 1, PageSize: 50, OrderBy: "llm_score", OrderDir: Desc, Mode: ModeNotViewed}
}

// Page is one page of query results.
type Page struct {
	Rows       []model.StoredJob `json:"rows"`
	TotalRows  int               `json:"total_rows"`
	TotalPages int               `json:"total_pages"`
	Page       int               `json:"page"`
}

func (s *SQLiteStore) validate(q Query) (string, error) {
	if q.Page < 1 {
		return "", model.Validationf("page must be >= 1, got %d", q.Page)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return "", model.Validationf("page size must be between 1 and %d, got %d", MaxPageSize, q.PageSize)
	}
	if !s.schema.Has(q.OrderBy) {
		return "", model.Validationf("unknown order column %q", q.OrderBy)
	}
	if q.OrderDir != Asc && q.OrderDir != Desc {
		return "", model.Validationf("order direction must be ASC or DESC, got %q", q.OrderDir)
	}
	return q.Mode.predicate()
}

// Query returns one page of jobs matching q.Mode. Ties on the order column are
// broken by scraping_date descending then id ascending, so pagination is stable.
func (s *SQLiteStore) Query(ctx context.Context, q Query) (Page, error) {
	where, err := s.validate(q)
	if err != nil {
		return Page{}, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("counting jobs: %w", err)
	}

	cols := model.AllColumns()
	stmt := fmt.Sprintf(
		"SELECT %s FROM jobs WHERE %s ORDER BY %s %s NULLS LAST, scraping_date DESC, id ASC LIMIT ? OFFSET ?",
		selectList(cols), where, quoteIdent(q.OrderBy), q.OrderDir,
	)
	rows, err := s.db.QueryContext(ctx, stmt, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return Page{}, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	page := Page{
		Rows:       []model.StoredJob{},
		TotalRows:  total,
		TotalPages: max(1, (total+q.PageSize-1)/q.PageSize),
		Page:       q.Page,
	}
	for rows.Next() {
		job, err := scanJob(rows, cols)
		if err != nil {
			return Page{}, fmt.Errorf("scanning job: %w", err)
		}
		page.Rows = append(page.Rows, job)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterating jobs: %w", err)
	}
	return page, nil
}
