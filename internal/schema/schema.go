// Package schema tracks the set of known job columns and how it grows.
// Columns are only ever added.
package schema

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/amishk599/jobsync/internal/model"
)

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Reconcile returns existing followed by every column from sets not already
// present, in first-seen order. upgrade is true iff existing was non-empty and
// at least one column was appended.
func Reconcile(existing []string, sets ...[]string) (final []string, upgrade bool) {
	seen := make(map[string]bool, len(existing))
	final = make([]string, 0, len(existing))
	for _, c := range existing {
		if !seen[c] {
			seen[c] = true
			final = append(final, c)
		}
	}
	base := len(final)
	for _, set := range sets {
		for _, c := range set {
			if !seen[c] {
				seen[c] = true
				final = append(final, c)
			}
		}
	}
	return final, base > 0 && len(final) > base
}

// Validate rejects names that cannot be used as an unquoted SQLite column.
func Validate(columns []string) error {
	for _, c := range columns {
		if !columnName.MatchString(c) {
			return fmt.Errorf("%w: invalid column name %q", model.ErrSchemaConflict, c)
		}
	}
	return nil
}

// Registry is the process-wide view of the jobs table columns.
type Registry struct {
	mu      sync.RWMutex
	columns []string
	known   map[string]bool
}

// NewRegistry seeds the registry with the columns already stored, followed by
// the canonical and annotation columns.
func NewRegistry(existing []string) *Registry {
	cols, _ := Reconcile(existing, model.CanonicalColumns(), model.AnnotationColumns())
	r := &Registry{known: make(map[string]bool, len(cols))}
	r.set(cols)
	return r
}

// Columns returns a copy of the known columns in order.
func (r *Registry) Columns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Has reports whether col is a known column.
func (r *Registry) Has(col string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.known[col]
}

// Missing returns the columns of incoming the registry does not know yet, in
// first-seen order. The registry is left unchanged until Add is called.
func (r *Registry) Missing(incoming []string) ([]string, error) {
	if err := Validate(incoming); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	final, _ := Reconcile(r.columns, incoming)
	return final[len(r.columns):], nil
}

// Add records cols as stored. Call it only once the table has them.
func (r *Registry) Add(cols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	final, _ := Reconcile(r.columns, cols)
	r.set(final)
}

func (r *Registry) set(cols []string) {
	r.columns = cols
	for _, c := range cols {
		r.known[c] = true
	}
}
