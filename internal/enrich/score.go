package enrich

import "github.com/amishk599/jobsync/internal/model"

// RelevanceThreshold is the minimum score a job needs to count as relevant.
const RelevanceThreshold = 7

// Criterion is one weighted sub-score.
type Criterion struct {
	Key    string // JSON field in the scoring response
	Label  string
	Hint   string
	Weight int // percent; all weights sum to 100
	get    func(model.SubScores) int
	set    func(*model.SubScores, int)
}

// Criteria is the fixed weight table. Weights are kept as integer
// percentages so the aggregate is exact.
var Criteria = []Criterion{
	{
		Key: "skills_fit", Label: "Technical skills and role", Weight: 40,
		Hint: "alignment with the candidate's languages, frameworks, methods and domain",
		get:  func(s model.SubScores) int { return s.Skills },
		set:  func(s *model.SubScores, v int) { s.Skills = v },
	},
	{
		Key: "employer_quality", Label: "Employer quality and reputation", Weight: 20,
		Hint: "solid or technically innovative company, good employee ratings",
		get:  func(s model.SubScores) int { return s.Employer },
		set:  func(s *model.SubScores, v int) { s.Employer = v },
	},
	{
		Key: "compensation", Label: "Compensation and benefits", Weight: 15,
		Hint: "competitive pay for a junior profile, benefits, flexible work",
		get:  func(s model.SubScores) int { return s.Compensation },
		set:  func(s *model.SubScores, v int) { s.Compensation = v },
	},
	{
		Key: "location_fit", Label: "Location and work mode", Weight: 10,
		Hint: "preferred areas, remote work or acceptable relocation",
		get:  func(s model.SubScores) int { return s.Location },
		set:  func(s *model.SubScores, v int) { s.Location = v },
	},
	{
		Key: "growth", Label: "Growth and training", Weight: 10,
		Hint: "mentorship, training, clear career paths, modern technology",
		get:  func(s model.SubScores) int { return s.Growth },
		set:  func(s *model.SubScores, v int) { s.Growth = v },
	},
	{
		Key: "seniority_fit", Label: "Seniority fit", Weight: 5,
		Hint: "responsibilities match the candidate's experience level",
		get:  func(s model.SubScores) int { return s.Seniority },
		set:  func(s *model.SubScores, v int) { s.Seniority = v },
	},
}

// Value returns this criterion's subscore from s.
func (c Criterion) Value(s model.SubScores) int { return c.get(s) }

// Aggregate returns round-half-up(Σ weight·subscore) clamped to [0,10].
func Aggregate(s model.SubScores) int {
	sum := 0
	for _, c := range Criteria {
		sum += c.Weight * clamp(c.get(s))
	}
	return clamp((sum + 50) / 100)
}

// Result builds an EnrichmentResult whose score is computed locally.
func Result(s model.SubScores, rationale string, matched, positive, negative []string) model.EnrichmentResult {
	score := Aggregate(s)
	return model.EnrichmentResult{
		SubScores:       s,
		Score:           score,
		Relevant:        score >= RelevanceThreshold,
		Rationale:       rationale,
		MatchedSkills:   nonNil(matched),
		PositiveSignals: nonNil(positive),
		NegativeSignals: nonNil(negative),
	}
}

// NoDescription is the result for records without a description.
func NoDescription() model.EnrichmentResult {
	return Result(model.SubScores{}, "no description", nil, nil, []string{"missing description"})
}

// Fallback is the result for a record whose scoring failed.
func Fallback(cause error) model.EnrichmentResult {
	return Result(model.SubScores{}, truncate("error: "+cause.Error(), maxRationale), nil, nil, nil)
}

func clamp(v int) int {
	return min(max(v, 0), 10)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
