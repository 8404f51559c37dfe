package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
)

// UpsertResult counts rows written by one Upsert.
type UpsertResult struct {
	Inserted int
	Updated  int
}

type chunkResult struct {
	inserted, updated int
}

// Upsert writes t keyed by id. Record and enrichment columns of existing rows
// are replaced; an enrichment column the incoming row leaves NULL keeps its
// stored value. Annotation columns are never written by ingestion. Rows are
// written in chunks, each in its own transaction, retried on failure.
func (s *SQLiteStore) Upsert(ctx context.Context, t model.Table) (UpsertResult, error) {
	var res UpsertResult
	if t.Len() == 0 {
		return res, nil
	}

	cols := t.Columns
	if !slices.Contains(cols, "id") {
		cols = append([]string{"id"}, cols...)
	}
	for _, c := range cols {
		if model.IsAnnotationColumn(c) {
			return res, fmt.Errorf("%w: ingestion may not write annotation column %q", model.ErrSchemaConflict, c)
		}
	}

	missing, err := s.schema.Missing(cols)
	if err != nil {
		return res, err
	}
	if len(missing) > 0 {
		if _, err := retry.Do(ctx, s.policy, func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, s.addColumns(ctx, missing)
		}); err != nil {
			return res, fmt.Errorf("%w: schema upgrade: %w", model.ErrStorageTransient, err)
		}
		s.schema.Add(missing)
	}

	stmt := upsertStatement(cols)
	for start := 0; start < t.Len(); start += s.chunkSize {
		end := min(start+s.chunkSize, t.Len())
		chunk := t.Rows[start:end]

		cr, err := retry.Do(ctx, s.policy, func(ctx context.Context, _ int) (chunkResult, error) {
			return s.upsertChunk(ctx, stmt, cols, chunk)
		})
		if err != nil {
			return res, fmt.Errorf("%w: upsert chunk at row %d: %w", model.ErrStorageTransient, start, err)
		}
		res.Inserted += cr.inserted
		res.Updated += cr.updated
	}

	s.logger.Debug("upsert complete", "inserted", res.Inserted, "updated", res.Updated)
	return res, nil
}

func (s *SQLiteStore) upsertChunk(ctx context.Context, stmt string, cols []string, rows []model.Row) (chunkResult, error) {
	var cr chunkResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cr, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Record.ID != "" {
			ids = append(ids, r.Record.ID)
		}
	}
	existing := make(map[string]bool, len(ids))
	if err := lookupIDs(ctx, tx, ids, existing); err != nil {
		return cr, err
	}

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return cr, fmt.Errorf("preparing upsert: %w", err)
	}
	defer prepared.Close()

	args := make([]any, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			args[i] = r.Value(c)
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return cr, fmt.Errorf("upserting job %q: %w", r.Record.ID, err)
		}

		id := r.Record.ID
		switch {
		case id == "":
			cr.inserted++
		case existing[id]:
			cr.updated++
		default:
			cr.inserted++
			existing[id] = true
		}
	}

	if err := tx.Commit(); err != nil {
		return chunkResult{}, fmt.Errorf("committing upsert: %w", err)
	}
	return cr, nil
}

func upsertStatement(cols []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO jobs (")
	b.WriteString(selectList(cols))
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(cols)))
	b.WriteString(")")

	var set []string
	for _, c := range cols {
		if c == "id" {
			continue
		}
		q := quoteIdent(c)
		if model.IsEnrichmentColumn(c) {
			set = append(set, fmt.Sprintf("%s = COALESCE(excluded.%s, jobs.%s)", q, q, q))
		} else {
			set = append(set, fmt.Sprintf("%s = excluded.%s", q, q))
		}
	}
	if len(set) == 0 {
		b.WriteString(" ON CONFLICT(id) DO NOTHING")
	} else {
		b.WriteString(" ON CONFLICT(id) DO UPDATE SET ")
		b.WriteString(strings.Join(set, ", "))
	}
	return b.String()
}
