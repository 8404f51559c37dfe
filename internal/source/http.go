package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:143.0) Gecko/20100101 Firefox/143.0"

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// doJSON sends req and decodes a 200 response into out. Other statuses come
// back as *model.HTTPError so retry logic can classify them.
func doJSON(client *http.Client, req *http.Request, what string, out any) error {
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s: unexpected status %d: %s", what, resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", what, err)
	}
	return nil
}

// attemptTimeout grows the per-request timeout by 10s for each retry.
func attemptTimeout(ctx context.Context, base time.Duration, attempt int) (context.Context, context.CancelFunc) {
	if base <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, base+time.Duration(max(attempt-1, 0))*10*time.Second)
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	htmlBlockRegex  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlBreakRegex  = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6])\s*/?>`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles Greenhouse's double-encoding;
// no-op on already-real HTML), drops script and style blocks, turns block
// ends into line breaks, strips all tags, then collapses whitespace per line.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	s := html.UnescapeString(content)
	s = htmlBlockRegex.ReplaceAllString(s, "")
	s = htmlBreakRegex.ReplaceAllString(s, "\n")
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
