package store

import (
	"context"
	"fmt"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
)

// Retention configures Prune.
type Retention struct {
	LowScoreDays   int // rows scored at or below ScoreThreshold expire after this many days
	AbsoluteDays   int // every row expires after this many days
	ScoreThreshold int
}

// DefaultRetention keeps low scores for a week and everything else for a month.
func DefaultRetention() Retention {
	return Retention{LowScoreDays: 7, AbsoluteDays: 30, ScoreThreshold: 5}
}

// PruneReport describes what Prune removed and what it left behind.
type PruneReport struct {
	Removed         int
	RemovedLowScore int
	RemovedStale    int

	Remaining         int
	RemainingLowScore int // remaining rows at or below the threshold
	RemainingStale    int // remaining rows past the absolute cutoff (all applied)
}

// Prune deletes rows that are low-scored and past LowScoreDays, or past
// AbsoluteDays. Rows the user applied to are never deleted, and rows without
// a scraping_date are left alone.
func (s *SQLiteStore) Prune(ctx context.Context, r Retention) (PruneReport, error) {
	if r.LowScoreDays < 0 || r.AbsoluteDays < 0 {
		return PruneReport{}, model.Validationf("retention days must be >= 0")
	}

	today := s.now()
	lowCutoff := today.AddDate(0, 0, -r.LowScoreDays).Format(model.DateLayout)
	absCutoff := today.AddDate(0, 0, -r.AbsoluteDays).Format(model.DateLayout)

	report, err := retry.Do(ctx, s.policy, func(ctx context.Context, _ int) (PruneReport, error) {
		return s.prune(ctx, r.ScoreThreshold, lowCutoff, absCutoff)
	})
	if err != nil {
		return PruneReport{}, fmt.Errorf("%w: prune: %w", model.ErrStorageTransient, err)
	}

	s.logger.Info("pruned jobs",
		"removed", report.Removed,
		"low_score", report.RemovedLowScore,
		"stale", report.RemovedStale,
		"remaining", report.Remaining,
		"remaining_low_score", report.RemainingLowScore,
		"remaining_stale", report.RemainingStale,
	)
	return report, nil
}

func (s *SQLiteStore) prune(ctx context.Context, threshold int, lowCutoff, absCutoff string) (PruneReport, error) {
	var rep PruneReport

	const notApplied = "(applied IS NULL OR applied = 0)"
	lowScore := "(llm_score IS NOT NULL AND llm_score <= ? AND scraping_date <= ? AND " + notApplied + ")"
	stale := "(scraping_date <= ? AND " + notApplied + ")"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rep, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(CASE WHEN "+lowScore+" THEN 1 END), COUNT(CASE WHEN "+stale+" AND NOT "+lowScore+" THEN 1 END) FROM jobs WHERE scraping_date IS NOT NULL",
		threshold, lowCutoff, absCutoff, threshold, lowCutoff,
	).Scan(&rep.RemovedLowScore, &rep.RemovedStale)
	if err != nil {
		return rep, fmt.Errorf("counting expired jobs: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM jobs WHERE scraping_date IS NOT NULL AND ("+lowScore+" OR "+stale+")",
		threshold, lowCutoff, absCutoff,
	)
	if err != nil {
		return rep, fmt.Errorf("deleting expired jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return rep, fmt.Errorf("deleting expired jobs: %w", err)
	}
	rep.Removed = int(n)

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(CASE WHEN llm_score <= ? THEN 1 END), COUNT(CASE WHEN scraping_date <= ? THEN 1 END) FROM jobs",
		threshold, absCutoff,
	).Scan(&rep.Remaining, &rep.RemainingLowScore, &rep.RemainingStale)
	if err != nil {
		return rep, fmt.Errorf("counting remaining jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PruneReport{}, fmt.Errorf("committing prune: %w", err)
	}
	return rep, nil
}
