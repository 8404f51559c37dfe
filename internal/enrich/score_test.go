package enrich

import (
	"errors"
	"testing"

	"github.com/amishk599/jobsync/internal/model"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		in   model.SubScores
		want int
	}{
		{"weighted example", model.SubScores{Skills: 8, Employer: 6, Compensation: 5, Location: 10, Growth: 4, Seniority: 9}, 7},
		{"exact half rounds up", model.SubScores{Skills: 6, Employer: 5, Compensation: 5, Location: 6, Growth: 5, Seniority: 5}, 6},
		{"all zero", model.SubScores{}, 0},
		{"all ten", model.SubScores{Skills: 10, Employer: 10, Compensation: 10, Location: 10, Growth: 10, Seniority: 10}, 10},
		{"out of range inputs are clamped", model.SubScores{Skills: 14, Employer: -3, Compensation: 10, Location: 10, Growth: 10, Seniority: 10}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.in); got != tt.want {
				t.Errorf("Aggregate(%+v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCriteriaWeightsSumToHundred(t *testing.T) {
	sum := 0
	for _, c := range Criteria {
		sum += c.Weight
	}
	if sum != 100 {
		t.Fatalf("weights sum to %d", sum)
	}
}

func TestResult_Relevance(t *testing.T) {
	r := Result(model.SubScores{Skills: 8, Employer: 6, Compensation: 5, Location: 10, Growth: 4, Seniority: 9}, "ok", nil, nil, nil)
	if r.Score != 7 || !r.Relevant {
		t.Errorf("score %d relevant %v", r.Score, r.Relevant)
	}
	if r.MatchedSkills == nil || r.PositiveSignals == nil || r.NegativeSignals == nil {
		t.Error("lists should be non-nil")
	}

	r = Result(model.SubScores{Skills: 6, Employer: 5, Compensation: 5, Location: 6, Growth: 5, Seniority: 5}, "", nil, nil, nil)
	if r.Relevant {
		t.Errorf("score %d should not be relevant", r.Score)
	}
}

func TestFallbackAndNoDescription(t *testing.T) {
	f := Fallback(errors.New("boom"))
	if f.Score != 0 || f.Relevant || f.Rationale != "error: boom" {
		t.Errorf("unexpected fallback: %+v", f)
	}

	n := NoDescription()
	if n.Score != 0 || n.Rationale != "no description" || len(n.NegativeSignals) != 1 {
		t.Errorf("unexpected no-description result: %+v", n)
	}
}
