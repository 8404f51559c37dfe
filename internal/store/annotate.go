package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// Annotate applies user flag assignments to one row. Only annotation columns
// may be assigned.
func (s *SQLiteStore) Annotate(ctx context.Context, id string, set []model.Assignment) error {
	if len(set) == 0 {
		return nil
	}

	clauses := make([]string, len(set))
	args := make([]any, 0, len(set)+1)
	for i, a := range set {
		if !model.IsAnnotationColumn(a.Column) {
			return model.Validationf("%q is not a user annotation column", a.Column)
		}
		clauses[i] = quoteIdent(a.Column) + " = ?"
		args = append(args, a.Value)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET "+strings.Join(clauses, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("annotating job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("annotating job %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// IsEmpty reports whether no jobs have been stored yet.
func (s *SQLiteStore) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM jobs)").Scan(&exists); err != nil {
		return false, fmt.Errorf("checking if store is empty: %w", err)
	}
	return !exists, nil
}
