package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ColumnType is the SQL storage class of a column.
type ColumnType int

const (
	TextColumn ColumnType = iota
	IntegerColumn
	RealColumn
)

// SQL returns the SQLite type name.
func (t ColumnType) SQL() string {
	switch t {
	case IntegerColumn:
		return "INTEGER"
	case RealColumn:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Owner identifies which part of the system is allowed to write a column.
type Owner int

const (
	OwnerRecord Owner = iota
	OwnerEnrichment
	OwnerAnnotation
)

// Column describes one column of the jobs table and how it maps onto StoredJob.
type Column struct {
	Name  string
	Type  ColumnType
	Owner Owner
	get   func(*StoredJob) any
	set   func(*StoredJob, any)
}

var catalogue = []Column{
	recordText("id", func(r *JobRecord) *string { return &r.ID }),
	recordText("site", func(r *JobRecord) *string { return &r.Site }),
	recordText("job_url", func(r *JobRecord) *string { return &r.JobURL }),
	recordText("job_url_direct", func(r *JobRecord) *string { return &r.JobURLDirect }),
	recordText("title", func(r *JobRecord) *string { return &r.Title }),
	recordText("company", func(r *JobRecord) *string { return &r.Company }),
	recordText("location", func(r *JobRecord) *string { return &r.Location }),
	recordText("date_posted", func(r *JobRecord) *string { return &r.DatePosted }),
	recordText("job_type", func(r *JobRecord) *string { return &r.JobType }),
	recordText("interval", func(r *JobRecord) *string { return &r.Interval }),
	recordReal("min_amount", func(r *JobRecord) **float64 { return &r.MinAmount }),
	recordReal("max_amount", func(r *JobRecord) **float64 { return &r.MaxAmount }),
	recordText("currency", func(r *JobRecord) *string { return &r.Currency }),
	{
		Name: "is_remote", Type: IntegerColumn, Owner: OwnerRecord,
		get: func(j *StoredJob) any { return boolValue(j.IsRemote) },
		set: func(j *StoredJob, v any) { j.IsRemote = asBool(v) },
	},
	recordText("job_level", func(r *JobRecord) *string { return &r.JobLevel }),
	recordText("job_function", func(r *JobRecord) *string { return &r.JobFunction }),
	recordText("emails", func(r *JobRecord) *string { return &r.Emails }),
	recordText("description", func(r *JobRecord) *string { return &r.Description }),
	recordText("company_url", func(r *JobRecord) *string { return &r.CompanyURL }),
	recordText("company_logo", func(r *JobRecord) *string { return &r.CompanyLogo }),
	recordText("company_num_employees", func(r *JobRecord) *string { return &r.CompanyNumEmployees }),
	recordText("company_revenue", func(r *JobRecord) *string { return &r.CompanyRevenue }),
	recordText("company_description", func(r *JobRecord) *string { return &r.CompanyDescription }),
	recordText("skills", func(r *JobRecord) *string { return &r.Skills }),
	recordText("work_from_home_type", func(r *JobRecord) *string { return &r.WorkFromHomeType }),
	recordText("company_industries", func(r *JobRecord) *string { return &r.CompanyIndustries }),
	recordText("company_activities", func(r *JobRecord) *string { return &r.CompanyActivities }),
	recordText("language_requirements", func(r *JobRecord) *string { return &r.LanguageRequirements }),
	recordText("role_activities", func(r *JobRecord) *string { return &r.RoleActivities }),
	recordText("scraping_date", func(r *JobRecord) *string { return &r.ScrapingDate }),

	{
		Name: "llm_relevant", Type: IntegerColumn, Owner: OwnerEnrichment,
		get: enrichmentGet(func(e *EnrichmentResult) any { return boolInt(e.Relevant) }),
		set: enrichmentSet(func(e *EnrichmentResult, v any) { e.Relevant = Flag(asBool(v)) }),
	},
	enrichmentInt("llm_score", func(e *EnrichmentResult) *int { return &e.Score }),
	enrichmentInt("llm_score_skills", func(e *EnrichmentResult) *int { return &e.SubScores.Skills }),
	enrichmentInt("llm_score_employer", func(e *EnrichmentResult) *int { return &e.SubScores.Employer }),
	enrichmentInt("llm_score_compensation", func(e *EnrichmentResult) *int { return &e.SubScores.Compensation }),
	enrichmentInt("llm_score_location", func(e *EnrichmentResult) *int { return &e.SubScores.Location }),
	enrichmentInt("llm_score_growth", func(e *EnrichmentResult) *int { return &e.SubScores.Growth }),
	enrichmentInt("llm_score_seniority", func(e *EnrichmentResult) *int { return &e.SubScores.Seniority }),
	{
		Name: "llm_rationale", Type: TextColumn, Owner: OwnerEnrichment,
		get: enrichmentGet(func(e *EnrichmentResult) any { return e.Rationale }),
		set: enrichmentSet(func(e *EnrichmentResult, v any) { e.Rationale = asString(v) }),
	},
	enrichmentList("llm_matched_skills", func(e *EnrichmentResult) *[]string { return &e.MatchedSkills }),
	enrichmentList("llm_positive_signals", func(e *EnrichmentResult) *[]string { return &e.PositiveSignals }),
	enrichmentList("llm_negative_signals", func(e *EnrichmentResult) *[]string { return &e.NegativeSignals }),

	annotationFlag("viewed", func(a *UserAnnotation) **bool { return &a.Viewed }),
	annotationFlag("interested", func(a *UserAnnotation) **bool { return &a.Interested }),
	annotationFlag("applied", func(a *UserAnnotation) **bool { return &a.Applied }),
	annotationTime("viewed_at", func(a *UserAnnotation) **time.Time { return &a.ViewedAt }),
	annotationTime("interested_at", func(a *UserAnnotation) **time.Time { return &a.InterestedAt }),
	annotationTime("applied_at", func(a *UserAnnotation) **time.Time { return &a.AppliedAt }),
	{
		Name: "notes", Type: TextColumn, Owner: OwnerAnnotation,
		get: func(j *StoredJob) any { return nullString(j.Annotation.Notes) },
		set: func(j *StoredJob, v any) { j.Annotation.Notes = asString(v) },
	},
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(catalogue))
	for i, c := range catalogue {
		idx[c.Name] = i
	}
	return idx
}()

// LookupColumn returns the catalogue entry for name.
func LookupColumn(name string) (Column, bool) {
	i, ok := columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return catalogue[i], true
}

// ColumnTypeOf returns the storage type for name. Columns outside the catalogue are TEXT.
func ColumnTypeOf(name string) ColumnType {
	if c, ok := LookupColumn(name); ok {
		return c.Type
	}
	return TextColumn
}

// CanonicalColumns returns the record and enrichment columns in catalogue order.
func CanonicalColumns() []string {
	return columnNames(func(o Owner) bool { return o != OwnerAnnotation })
}

// AnnotationColumns returns the user-owned columns.
func AnnotationColumns() []string {
	return columnNames(func(o Owner) bool { return o == OwnerAnnotation })
}

// AllColumns returns every catalogue column.
func AllColumns() []string {
	return columnNames(func(Owner) bool { return true })
}

// IsAnnotationColumn reports whether name is owned by the annotation surface.
func IsAnnotationColumn(name string) bool {
	c, ok := LookupColumn(name)
	return ok && c.Owner == OwnerAnnotation
}

// IsEnrichmentColumn reports whether name is owned by the enrichment engine.
func IsEnrichmentColumn(name string) bool {
	c, ok := LookupColumn(name)
	return ok && c.Owner == OwnerEnrichment
}

func columnNames(keep func(Owner) bool) []string {
	var names []string
	for _, c := range catalogue {
		if keep(c.Owner) {
			names = append(names, c.Name)
		}
	}
	return names
}

func recordText(name string, field func(*JobRecord) *string) Column {
	return Column{
		Name: name, Type: TextColumn, Owner: OwnerRecord,
		get: func(j *StoredJob) any { return nullString(*field(&j.JobRecord)) },
		set: func(j *StoredJob, v any) { *field(&j.JobRecord) = asString(v) },
	}
}

func recordReal(name string, field func(*JobRecord) **float64) Column {
	return Column{
		Name: name, Type: RealColumn, Owner: OwnerRecord,
		get: func(j *StoredJob) any {
			if p := *field(&j.JobRecord); p != nil {
				return *p
			}
			return nil
		},
		set: func(j *StoredJob, v any) { *field(&j.JobRecord) = asFloat(v) },
	}
}

func enrichmentGet(get func(*EnrichmentResult) any) func(*StoredJob) any {
	return func(j *StoredJob) any {
		if j.Enrichment == nil {
			return nil
		}
		return get(j.Enrichment)
	}
}

func enrichmentSet(set func(*EnrichmentResult, any)) func(*StoredJob, any) {
	return func(j *StoredJob, v any) {
		if v == nil {
			return
		}
		if j.Enrichment == nil {
			j.Enrichment = &EnrichmentResult{}
		}
		set(j.Enrichment, v)
	}
}

func enrichmentInt(name string, field func(*EnrichmentResult) *int) Column {
	return Column{
		Name: name, Type: IntegerColumn, Owner: OwnerEnrichment,
		get: enrichmentGet(func(e *EnrichmentResult) any { return int64(*field(e)) }),
		set: enrichmentSet(func(e *EnrichmentResult, v any) {
			if n := asInt(v); n != nil {
				*field(e) = int(*n)
			}
		}),
	}
}

func enrichmentList(name string, field func(*EnrichmentResult) *[]string) Column {
	return Column{
		Name: name, Type: TextColumn, Owner: OwnerEnrichment,
		get: enrichmentGet(func(e *EnrichmentResult) any {
			list := *field(e)
			if list == nil {
				list = []string{}
			}
			b, _ := json.Marshal(list)
			return string(b)
		}),
		set: enrichmentSet(func(e *EnrichmentResult, v any) {
			var list []string
			if err := json.Unmarshal([]byte(asString(v)), &list); err == nil {
				*field(e) = list
			}
		}),
	}
}

func annotationFlag(name string, field func(*UserAnnotation) **bool) Column {
	return Column{
		Name: name, Type: IntegerColumn, Owner: OwnerAnnotation,
		get: func(j *StoredJob) any { return boolValue(*field(&j.Annotation)) },
		set: func(j *StoredJob, v any) { *field(&j.Annotation) = asBool(v) },
	}
}

func annotationTime(name string, field func(*UserAnnotation) **time.Time) Column {
	return Column{
		Name: name, Type: TextColumn, Owner: OwnerAnnotation,
		get: func(j *StoredJob) any {
			if t := *field(&j.Annotation); t != nil {
				return FormatTimestamp(*t)
			}
			return nil
		},
		set: func(j *StoredJob, v any) {
			s := asString(v)
			if s == "" {
				*field(&j.Annotation) = nil
				return
			}
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				*field(&j.Annotation) = &t
			}
		},
	}
}

// FormatTimestamp renders annotation timestamps as UTC RFC3339 with second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func boolValue(b *bool) any {
	if b == nil {
		return nil
	}
	return boolInt(*b)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) *int64 {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case int:
		n = int64(x)
	case float64:
		n = int64(x)
	case bool:
		n = boolInt(x)
	case string, []byte:
		parsed, err := strconv.ParseInt(asString(x), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func asFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case string, []byte:
		parsed, err := strconv.ParseFloat(asString(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func asBool(v any) *bool {
	if s, ok := v.(string); ok {
		b := s == "1" || s == "true" || s == "True"
		return &b
	}
	n := asInt(v)
	if n == nil {
		return nil
	}
	b := *n != 0
	return &b
}
