package enrich

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/amishk599/jobsync/internal/model"
)

//go:embed prompts/system.md
var systemPromptRaw string

//go:embed prompts/job.md
var jobPromptRaw string

var (
	systemTemplate = template.Must(template.New("system").Parse(systemPromptRaw))
	jobTemplate    = template.Must(template.New("job").Parse(jobPromptRaw))
)

// SystemPrompt renders the candidate profile and the weight table.
func SystemPrompt() (string, error) {
	var buf bytes.Buffer
	err := systemTemplate.Execute(&buf, struct {
		Criteria  []Criterion
		Threshold int
		Partial   int
	}{Criteria, RelevanceThreshold, RelevanceThreshold - 1})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

type jobView struct {
	Title, Company, Location string
	Seniority, JobType       string
	Compensation, Remote     string
	Skills, Languages        string
	CompanyInfo              string
	Description              string
}

// JobPrompt renders the structured description of rec sent to the scorer.
func JobPrompt(rec model.JobRecord) (string, error) {
	v := jobView{
		Title:        rec.Title,
		Company:      rec.Company,
		Location:     rec.Location,
		Seniority:    rec.JobLevel,
		JobType:      rec.JobType,
		Compensation: compensation(rec),
		Skills:       rec.Skills,
		Languages:    rec.LanguageRequirements,
		CompanyInfo:  companyInfo(rec),
		Description:  strings.TrimSpace(rec.Description),
	}
	switch {
	case rec.IsRemote != nil && *rec.IsRemote:
		v.Remote = "yes"
	case rec.IsRemote != nil:
		v.Remote = "no"
	}
	if rec.WorkFromHomeType != "" {
		v.Remote = strings.TrimSpace(v.Remote + " " + "(" + rec.WorkFromHomeType + ")")
	}

	var buf bytes.Buffer
	if err := jobTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render job prompt: %w", err)
	}
	return buf.String(), nil
}

func compensation(rec model.JobRecord) string {
	var amount string
	switch {
	case rec.MinAmount != nil && rec.MaxAmount != nil:
		amount = formatAmount(*rec.MinAmount) + "-" + formatAmount(*rec.MaxAmount)
	case rec.MinAmount != nil:
		amount = "from " + formatAmount(*rec.MinAmount)
	case rec.MaxAmount != nil:
		amount = "up to " + formatAmount(*rec.MaxAmount)
	default:
		return ""
	}
	parts := []string{amount}
	if rec.Currency != "" {
		parts = append(parts, rec.Currency)
	}
	if rec.Interval != "" {
		parts = append(parts, "("+rec.Interval+")")
	}
	return strings.Join(parts, " ")
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func companyInfo(rec model.JobRecord) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Industries", rec.CompanyIndustries)
	add("Employees", rec.CompanyNumEmployees)
	add("Revenue", rec.CompanyRevenue)
	add("Activities", rec.CompanyActivities)
	add("About", rec.CompanyDescription)
	return strings.Join(lines, "\n")
}
