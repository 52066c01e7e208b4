package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdvice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "recommendations object",
			text: `{"analysis":"balanced","riskScore":65,"recommendations":["hold ETH","keep stables"]}`,
			want: []string{"hold ETH", "keep stables"},
		},
		{
			name: "fenced json",
			text: "```json\n{\"recommendations\":[\"rebalance\"]}\n```",
			want: []string{"rebalance"},
		},
		{
			name: "steps fallback",
			text: `{"strategy":"conservative","steps":["DCA weekly"]}`,
			want: []string{"DCA weekly"},
		},
		{
			name: "plain text",
			text: "  Consider reducing exposure.  ",
			want: []string{"Consider reducing exposure."},
		},
		{
			name: "object without recommendations",
			text: `{"message":"hi"}`,
			want: []string{`{"message":"hi"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAdvice(tt.text)
			assert.Equal(t, tt.want, got.Recommendations)
			assert.Equal(t, tt.text, got.Raw)
		})
	}
}

func TestParseAdvice_KeepsAnalysis(t *testing.T) {
	got := ParseAdvice(`{"analysis":"balanced","riskScore":65,"recommendations":["a"]}`)
	assert.Equal(t, "balanced", got.Analysis)
	assert.Equal(t, 65.0, got.RiskScore)
}

func TestParseAssessment(t *testing.T) {
	got := ParseAssessment(`{"action":"proceed","riskLevel":"HIGH","reason":"thin pool","confidence":0.8}`)
	assert.Equal(t, "proceed", got.Action)
	assert.Equal(t, RiskHigh, got.RiskLevel)
	assert.True(t, got.IsHighRisk())
	assert.Equal(t, "thin pool", got.Reason)
	assert.Equal(t, 0.8, got.Confidence)

	odd := ParseAssessment(`{"action":"wait","riskLevel":"extreme"}`)
	assert.Equal(t, RiskUnknown, odd.RiskLevel)

	raw := ParseAssessment("looks fine to me")
	assert.Equal(t, RiskUnknown, raw.RiskLevel)
	assert.Equal(t, "looks fine to me", raw.Reason)
	assert.False(t, raw.IsHighRisk())
}
