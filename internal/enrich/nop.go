package enrich

import (
	"context"

	"github.com/amishk599/jobsync/internal/model"
)

// Nop leaves rows unscored. It is used when enrichment is disabled.
type Nop struct{}

// Enrich returns rows unchanged.
func (Nop) Enrich(_ context.Context, rows []model.Row) ([]model.Row, error) {
	return rows, nil
}
