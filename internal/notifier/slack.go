package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxDigestJobs keeps a digest well under Slack's 50-block limit.
const maxDigestJobs = 20

// SlackNotifier posts one digest message per run to a Slack Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts digests to webhookURL.
// Rate-limited and 5xx responses are retried, honouring Retry-After.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.Exponential(time.Second),
			Retryable:   retry.IsTransient,
		},
		logger: logger,
	}
}

// Notify sends jobs as a single Block Kit message.
func (s *SlackNotifier) Notify(jobs []model.StoredJob) error {
	if len(jobs) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(jobs))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	_, err = retry.Do(context.Background(), s.policy, func(ctx context.Context, _ int) (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("slack digest: %w", err)
	}
	s.logger.Info("slack digest sent", "jobs", len(jobs))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := &model.HTTPError{StatusCode: resp.StatusCode}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return httpErr
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string       `json:"type"`
	Text      *slackText   `json:"text,omitempty"`
	Elements  []slackText  `json:"elements,omitempty"`
	Accessory *slackButton `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackButton struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

// SendTestMessage sends a dummy digest to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	job := model.StoredJob{
		JobRecord: model.JobRecord{
			ID:       "test-001",
			Site:     "test",
			Title:    "Test Notification",
			Company:  "jobsync",
			Location: "Everywhere",
			JobURL:   "https://example.com/jobs/test-001",
		},
		Enrichment: &model.EnrichmentResult{Score: 10, Relevant: true, Rationale: "Integration verified"},
	}
	return n.Notify([]model.StoredJob{job})
}

func buildPayload(jobs []model.StoredJob) slackPayload {
	title := fmt.Sprintf("%d new relevant job", len(jobs))
	if len(jobs) != 1 {
		title += "s"
	}

	blocks := []slackBlock{{Type: "header", Text: &slackText{Type: "plain_text", Text: title}}}
	shown := jobs
	if len(shown) > maxDigestJobs {
		shown = shown[:maxDigestJobs]
	}
	for _, j := range shown {
		blocks = append(blocks, jobBlock(j), slackBlock{Type: "divider"})
	}
	if extra := len(jobs) - len(shown); extra > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("…and %d more", extra)}},
		})
	}
	return slackPayload{Text: title, Blocks: blocks}
}

func jobBlock(j model.StoredJob) slackBlock {
	score := "unscored"
	rationale := ""
	if j.Enrichment != nil {
		score = fmt.Sprintf("%d/10", j.Enrichment.Score)
		rationale = j.Enrichment.Rationale
	}

	text := fmt.Sprintf("*%s*\n%s · %s · score %s", j.Title, j.Company, orDash(j.Location), score)
	if rationale != "" {
		text += "\n_" + rationale + "_"
	}
	b := slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}}

	if url := firstURL(j); url != "" {
		b.Accessory = &slackButton{
			Type: "button",
			Text: slackText{Type: "plain_text", Text: "Open"},
			URL:  url,
		}
	}
	return b
}

func firstURL(j model.StoredJob) string {
	if j.JobURLDirect != "" {
		return j.JobURLDirect
	}
	return j.JobURL
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
