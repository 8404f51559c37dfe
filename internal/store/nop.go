package store

import (
	"context"

	"github.com/amishk599/jobsync/internal/model"
)

// NopStore is used in dry-run mode. Nothing is stored, so every job is new on
// each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) ExistingIDs(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *NopStore) Upsert(_ context.Context, t model.Table) (UpsertResult, error) {
	return UpsertResult{Inserted: t.Len()}, nil
}

func (s *NopStore) Prune(context.Context, Retention) (PruneReport, error) { return PruneReport{}, nil }
func (s *NopStore) IsEmpty(context.Context) (bool, error)                 { return false, nil }
