package review

import (
	"fmt"
	"strings"

	"github.com/amishk599/jobsync/internal/enrich"
	"github.com/amishk599/jobsync/internal/model"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

func badge(j model.StoredJob) string {
	if j.Enrichment == nil {
		return scoreStyle(0, false).Render("--")
	}
	return scoreStyle(j.Enrichment.Score, j.Enrichment.Relevant).Render(fmt.Sprintf("%2d", j.Enrichment.Score))
}

func flags(a model.UserAnnotation) string {
	var out []string
	if model.Flag(a.Viewed) {
		out = append(out, "viewed")
	}
	if model.Flag(a.Interested) {
		out = append(out, "interested")
	}
	if model.Flag(a.Applied) {
		out = append(out, "applied")
	}
	if a.Notes != "" {
		out = append(out, "note")
	}
	return strings.Join(out, " ")
}

func renderJobs(jobs []model.StoredJob, cursor int) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		titleSt, subtitleSt, prefix := jobTitleStyle, jobSubtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedJobTitleStyle, selectedJobSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(badge(j))
		b.WriteByte(' ')
		b.WriteString(titleSt.Render(orDash(j.Title)))
		b.WriteByte('\n')

		sub := fmt.Sprintf("%s · %s · %s", orDash(j.Company), orDash(j.Location), orDash(j.DatePosted))
		if f := flags(j.Annotation); f != "" {
			sub += " · " + f
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(sub))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderDetail(j model.StoredJob, width int, showDescription bool) string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}
	wrapWidth := max(width-8, 20)
	divider := func(label string) {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		b.WriteString("\n" + dividerStyle.Render(label+fill) + "\n\n")
	}

	b.WriteString(detailTitleStyle.Render(orDash(j.Title)) + "  " + badge(j) + "\n\n")
	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Posted", j.DatePosted)
	addField("Scraped", j.ScrapingDate)
	addField("Source", j.Site)
	addField("Job ID", j.ID)
	addField("Job type", j.JobType)
	addField("Level", j.JobLevel)
	addField("Pay", pay(j.JobRecord))
	addField("Skills", j.Skills)
	addField("Languages", j.LanguageRequirements)
	addField("URL", firstURL(j.JobRecord))

	if e := j.Enrichment; e != nil {
		divider("── Score ")
		for _, c := range enrich.Criteria {
			fmt.Fprintf(&b, "  %-32s %2d/10  (weight %d%%)\n", c.Label, c.Value(e.SubScores), c.Weight)
		}
		b.WriteByte('\n')
		b.WriteString(bodyStyle.Render(wordWrap(e.Rationale, wrapWidth)) + "\n")
		if len(e.MatchedSkills) > 0 {
			b.WriteByte('\n')
			addField("Matched", strings.Join(e.MatchedSkills, ", "))
		}
		for _, s := range e.PositiveSignals {
			b.WriteString("  + " + s + "\n")
		}
		for _, s := range e.NegativeSignals {
			b.WriteString("  - " + s + "\n")
		}
	}

	if f := flags(j.Annotation); f != "" || j.Annotation.Notes != "" {
		divider("── Review ")
		addField("Flags", f)
		if j.Annotation.Notes != "" {
			b.WriteString(bodyStyle.Render(wordWrap(j.Annotation.Notes, wrapWidth)) + "\n")
		}
	}

	if j.Description != "" {
		if showDescription {
			divider("── Description ")
			b.WriteString(bodyStyle.Render(wordWrap(j.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString("\n" + hintStyle.Render("  press r to read the description") + "\n")
		}
	}
	return b.String()
}

func pay(r model.JobRecord) string {
	if r.MinAmount == nil && r.MaxAmount == nil {
		return ""
	}
	var amount string
	switch {
	case r.MinAmount != nil && r.MaxAmount != nil:
		amount = fmt.Sprintf("%.0f-%.0f", *r.MinAmount, *r.MaxAmount)
	case r.MinAmount != nil:
		amount = fmt.Sprintf("from %.0f", *r.MinAmount)
	default:
		amount = fmt.Sprintf("up to %.0f", *r.MaxAmount)
	}
	return strings.TrimSpace(strings.Join([]string{amount, r.Currency, r.Interval}, " "))
}

func firstURL(r model.JobRecord) string {
	if r.JobURLDirect != "" {
		return r.JobURLDirect
	}
	return r.JobURL
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
