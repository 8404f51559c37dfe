package filter

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// TitleAndLocationFilter matches records whose title contains any of the title
// keywords and whose location contains any of the location keywords.
// Matching is case-insensitive. Empty keyword lists are treated as "match all".
// Titles containing an excluded keyword never match.
type TitleAndLocationFilter struct {
	titleKeywords []string
	locations     []string
	exclude       []string
}

// NewTitleAndLocationFilter returns a filter that requires both a title keyword
// match and a location keyword match (case-insensitive substring).
func NewTitleAndLocationFilter(titleKeywords, locations, exclude []string) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords: lowerAll(titleKeywords),
		locations:     lowerAll(locations),
		exclude:       lowerAll(exclude),
	}
}

func (f *TitleAndLocationFilter) Match(rec model.JobRecord) bool {
	title := strings.ToLower(rec.Title)
	if containsAny(title, f.exclude) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(title, f.titleKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(strings.ToLower(rec.Location), f.locations) {
		return false
	}
	return true
}

// LocationGuard keeps records whose location mentions one of the words of a
// searched city, or the country. Glassdoor is queried by city alone and
// returns matches from anywhere; the guard drops those.
type LocationGuard struct {
	patterns []*regexp.Regexp
}

// NewLocationGuard builds a guard for city (e.g. "Milano, Lombardia" guards
// on "Milano") and the given country names.
func NewLocationGuard(city string, countries ...string) *LocationGuard {
	city = strings.TrimSpace(strings.Split(city, ",")[0])
	g := &LocationGuard{}
	for _, c := range countries {
		g.patterns = append(g.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(c)))
	}
	for _, tok := range strings.Fields(city) {
		g.patterns = append(g.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return g
}

func (g *LocationGuard) Match(rec model.JobRecord) bool {
	for _, p := range g.patterns {
		if p.MatchString(rec.Location) {
			return true
		}
	}
	return false
}

// All matches when every filter matches.
type All []model.JobFilter

func (a All) Match(rec model.JobRecord) bool {
	for _, f := range a {
		if !f.Match(rec) {
			return false
		}
	}
	return true
}

// Apply returns the records f matches. A nil filter keeps everything.
func Apply(f model.JobFilter, recs []model.JobRecord) []model.JobRecord {
	if f == nil {
		return recs
	}
	out := make([]model.JobRecord, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
