package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// maxRationale bounds the stored rationale, in runes.
const maxRationale = 500

var errNoJSON = errors.New("no JSON object in response")

// extractJSON returns the first balanced {...} object in s. Braces inside
// string literals do not count.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSON
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", errNoJSON)
}

type rawResult struct {
	Rationale string   `json:"rationale"`
	Matched   []string `json:"matched_skills"`
	Positive  []string `json:"positive_signals"`
	Negative  []string `json:"negative_signals"`
}

// parseResult decodes a scoring response. Every sub-score must be present;
// values are rounded and clamped to [0,10]. Any "score" the model sends is ignored.
func parseResult(raw string) (model.EnrichmentResult, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return model.EnrichmentResult{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return model.EnrichmentResult{}, fmt.Errorf("decode scoring JSON: %w", err)
	}
	var rr rawResult
	if err := json.Unmarshal([]byte(obj), &rr); err != nil {
		return model.EnrichmentResult{}, fmt.Errorf("decode scoring JSON: %w", err)
	}

	var scores model.SubScores
	var missing []string
	for _, c := range Criteria {
		v, ok := fields[c.Key]
		if !ok || string(v) == "null" {
			missing = append(missing, c.Key)
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return model.EnrichmentResult{}, fmt.Errorf("sub-score %s: %w", c.Key, err)
		}
		c.set(&scores, clamp(int(math.Round(f))))
	}
	if len(missing) > 0 {
		return model.EnrichmentResult{}, fmt.Errorf("missing sub-scores: %s", strings.Join(missing, ", "))
	}

	return Result(scores, truncate(strings.TrimSpace(rr.Rationale), maxRationale), rr.Matched, rr.Positive, rr.Negative), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
