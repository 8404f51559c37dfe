// Package source fetches job postings from external collaborators and maps
// each source's native shape onto model.JobRecord.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// Record is a posting in one source's native shape. The set of shapes is
// closed: every implementation lives in this package.
type Record interface {
	JobRecord() model.JobRecord
	sourceRecord()
}

// Unit is one independently retryable fetch, e.g. one JobSpy location or one
// company board. attempt is 1-based.
type Unit struct {
	Name   string
	Source string
	Fetch  func(ctx context.Context, attempt int) ([]Record, error)
}

// Params are the search parameters shared by the search-style sources.
type Params struct {
	Query         string
	HoursOld      int
	ResultsWanted int
}

// Records maps a batch of native records to JobRecords.
func Records(recs []Record) []model.JobRecord {
	out := make([]model.JobRecord, len(recs))
	for i, r := range recs {
		out[i] = r.JobRecord()
	}
	return out
}

// textList decodes either a JSON string or a list of strings.
type textList []string

func (l *textList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "" {
			*l = textList{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("decoding text list: %w", err)
	}
	*l = list
	return nil
}

func (l textList) join(sep string) string {
	return strings.Join(l, sep)
}

// flexString decodes a JSON string or number into text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding text value: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

func datePart(ts string) string {
	if ts == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC().Format(model.DateLayout)
	}
	d, _, _ := strings.Cut(ts, "T")
	return d
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }
