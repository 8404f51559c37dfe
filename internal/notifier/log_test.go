package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobsync/internal/model"
)

func TestLogNotifier_Notify_zeroJobs(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLogNotifier_Notify_logsScore(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	jobs := []model.StoredJob{
		sampleJob("1", "Data Engineer", "Acme", 8),
		{JobRecord: model.JobRecord{ID: "2", Title: "Developer", Company: "Beta"}},
	}
	if err := n.Notify(jobs); err != nil {
		t.Fatalf("Notify(jobs) = %v, want nil", err)
	}
	out := buf.String()
	if strings.Count(out, "msg=\"new job\"") != 2 {
		t.Errorf("expected two log lines, got %q", out)
	}
	if !strings.Contains(out, "score=8") {
		t.Errorf("score not logged: %q", out)
	}
}
