package notifier

import (
	"cmp"
	"slices"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure MinScore implements model.Notifier.
var _ model.Notifier = (*MinScore)(nil)

// MinScore forwards only scored jobs at or above a threshold, best first.
type MinScore struct {
	next model.Notifier
	min  int
}

// NewMinScore wraps next with a score threshold.
func NewMinScore(next model.Notifier, min int) *MinScore {
	return &MinScore{next: next, min: min}
}

// Notify filters jobs and calls the wrapped notifier when any remain.
func (m *MinScore) Notify(jobs []model.StoredJob) error {
	picked := Relevant(jobs, m.min)
	if len(picked) == 0 {
		return nil
	}
	return m.next.Notify(picked)
}

// Relevant returns the scored jobs with score >= min, ordered by score
// descending and then by id. The input is not modified.
func Relevant(jobs []model.StoredJob, min int) []model.StoredJob {
	var out []model.StoredJob
	for _, j := range jobs {
		if j.Enrichment != nil && j.Enrichment.Score >= min {
			out = append(out, j)
		}
	}
	slices.SortStableFunc(out, func(a, b model.StoredJob) int {
		if c := cmp.Compare(b.Enrichment.Score, a.Enrichment.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Multi fans a digest out to several notifiers and returns the first error.
type Multi []model.Notifier

// Notify calls every notifier even if one fails.
func (m Multi) Notify(jobs []model.StoredJob) error {
	var first error
	for _, n := range m {
		if err := n.Notify(jobs); err != nil && first == nil {
			first = err
		}
	}
	return first
}
