package notifier

import (
	"log/slog"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new relevant jobs to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each job with its score. Stdout logging does not fail.
func (n *LogNotifier) Notify(jobs []model.StoredJob) error {
	for _, j := range jobs {
		args := []any{"id", j.ID, "company", j.Company, "title", j.Title, "location", j.Location, "url", j.JobURL}
		if j.Enrichment != nil {
			args = append(args, "score", j.Enrichment.Score)
		}
		if j.DatePosted != "" {
			args = append(args, "posted", j.DatePosted)
		}
		n.logger.Info("new job", args...)
	}
	return nil
}
