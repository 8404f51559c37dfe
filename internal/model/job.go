package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the on-disk format of date_posted and scraping_date.
const DateLayout = "2006-01-02"

// JobRecord is one posting from one source at one scrape.
// Empty strings and nil pointers are stored as NULL.
type JobRecord struct {
	ID           string // source-qualified, stable across scrapes
	Site         string // source name (indeed, linkedin, hiring_cafe, greenhouse, ...)
	JobURL       string
	JobURLDirect string
	Title        string
	Company      string
	Location     string
	DatePosted   string // YYYY-MM-DD
	JobType      string
	Interval     string // compensation interval (yearly, monthly, ...)
	MinAmount    *float64
	MaxAmount    *float64
	Currency     string
	IsRemote     *bool
	JobLevel     string
	JobFunction  string
	Emails       string
	Description  string // plain text

	CompanyURL          string
	CompanyLogo         string
	CompanyNumEmployees string
	CompanyRevenue      string
	CompanyDescription  string
	CompanyIndustries   string
	CompanyActivities   string

	Skills               string
	WorkFromHomeType     string
	LanguageRequirements string
	RoleActivities       string

	ScrapingDate string // YYYY-MM-DD, stamped by the pipeline
}

// SubScores are the per-criterion judgments returned by the scoring model, each in [0,10].
type SubScores struct {
	Skills       int `json:"skills_fit"`
	Employer     int `json:"employer_quality"`
	Compensation int `json:"compensation"`
	Location     int `json:"location_fit"`
	Growth       int `json:"growth"`
	Seniority    int `json:"seniority_fit"`
}

// EnrichmentResult is the scoring judgment for one JobRecord.
// Score is always computed locally from SubScores.
type EnrichmentResult struct {
	SubScores       SubScores
	Score           int
	Relevant        bool
	Rationale       string
	MatchedSkills   []string
	PositiveSignals []string
	NegativeSignals []string
}

// UserAnnotation is review state owned by the user. Ingestion never writes it.
type UserAnnotation struct {
	Viewed       *bool
	Interested   *bool
	Applied      *bool
	ViewedAt     *time.Time
	InterestedAt *time.Time
	AppliedAt    *time.Time
	Notes        string
}

// StoredJob is one row of the jobs table.
type StoredJob struct {
	JobRecord
	Enrichment *EnrichmentResult // nil if the row was never scored
	Annotation UserAnnotation
}

// Value returns the stored value of col, or nil when the column is unknown or unset.
func (j *StoredJob) Value(col string) any {
	c, ok := LookupColumn(col)
	if !ok {
		return nil
	}
	return c.get(j)
}

// Set assigns a value scanned from the database to col. Unknown columns are ignored.
func (j *StoredJob) Set(col string, v any) {
	if c, ok := LookupColumn(col); ok {
		c.set(j, v)
	}
}

// MarshalJSON renders the row as a flat object keyed by column name.
func (j StoredJob) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(catalogue))
	for _, c := range catalogue {
		out[c.Name] = c.get(&j)
	}
	return json.Marshal(out)
}

// Flag reports whether a tri-state flag is set to true.
func Flag(b *bool) bool {
	return b != nil && *b
}

// Notifier sends a digest of newly stored jobs.
type Notifier interface {
	Notify(jobs []StoredJob) error
}

// JobFilter decides whether a record is worth scoring and storing.
type JobFilter interface {
	Match(rec JobRecord) bool
}
