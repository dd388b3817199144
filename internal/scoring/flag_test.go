package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagPolicy_Decide(t *testing.T) {
	policy := FlagPolicy{
		FlagOnRiskLevels:         []string{"high", "severe"},
		FlagOnScoreAtOrAbove:     f(15),
		FlagOnIncompleteRequired: true,
	}

	cases := []struct {
		name    string
		policy  FlagPolicy
		score   float64
		level   string
		missing []string
		flagged bool
		reasons []string
	}{
		{"nothing", policy, 3, "low", nil, false, []string{}},
		{"risk level", policy, 3, "high", nil, true, []string{ReasonRiskLevel}},
		{"threshold is inclusive", policy, 15, "low", nil, true, []string{ReasonScoreThreshold}},
		{"just below threshold", policy, 14.9, "low", nil, false, []string{}},
		{"incomplete", policy, 0, "low", []string{"q2"}, true, []string{ReasonIncompleteRequired}},
		{"all reasons in order", policy, 20, "severe", []string{"q1"}, true,
			[]string{ReasonRiskLevel, ReasonScoreThreshold, ReasonIncompleteRequired}},
		{"incomplete ignored when disabled", FlagPolicy{}, 0, "low", []string{"q2"}, false, []string{}},
		{"no threshold configured", FlagPolicy{FlagOnRiskLevels: []string{"high"}}, 1000, "low", nil, false, []string{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			flagged, reasons := c.policy.Decide(c.score, c.level, c.missing)
			assert.Equal(t, c.flagged, flagged)
			assert.Equal(t, c.reasons, reasons)
		})
	}
}
