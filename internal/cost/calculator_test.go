package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"mini":  {Input: 0.15, Output: 0.60},
			"sonar": {Input: 1.00, Output: 1.00},
		},
		Search: map[string]float64{
			"openai":     0.025,
			"perplexity": 0.005,
		},
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{"mini one million each", "mini", 1_000_000, 1_000_000, 0.75},
		{"mini small call", "mini", 2000, 500, 0.0003 + 0.0003},
		{"sonar", "sonar", 500_000, 500_000, 1.00},
		{"unknown model", "nope", 1_000_000, 1_000_000, 0},
		{"zero", "mini", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.Tokens(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 0.25, calc.Search("openai", 10), 1e-9)
	assert.InDelta(t, 0.05, calc.Search("perplexity", 10), 1e-9)
	assert.Zero(t, calc.Search("unknown", 10))
}

func TestEstimate(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	u := Usage{Calls: 4, Searches: 4, InputTokens: 1_000_000, OutputTokens: 0}
	assert.InDelta(t, 0.15+0.10, calc.Estimate("openai", "mini", u), 1e-9)
}

func TestUsageAdd(t *testing.T) {
	t.Parallel()
	a := Usage{Calls: 1, Searches: 2, InputTokens: 3, OutputTokens: 4}
	b := Usage{Calls: 10, Searches: 20, InputTokens: 30, OutputTokens: 40}
	assert.Equal(t, Usage{Calls: 11, Searches: 22, InputTokens: 33, OutputTokens: 44}, a.Add(b))
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	r := DefaultRates()

	assert.Contains(t, r.Models, "gpt-4o-mini")
	assert.Contains(t, r.Models, "sonar-pro")
	assert.Contains(t, r.Models, "claude-sonnet-4-5-20250929")
	for _, p := range []string{"openai", "perplexity", "anthropic"} {
		assert.Positive(t, r.Search[p], p)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()
	base := testRates()
	merged := base.Merge(Rates{
		Models: map[string]ModelRate{"mini": {Input: 1, Output: 2}, "new": {Input: 5}},
		Search: map[string]float64{"anthropic": 0.01},
	})

	assert.Equal(t, ModelRate{Input: 1, Output: 2}, merged.Models["mini"])
	assert.Equal(t, ModelRate{Input: 5}, merged.Models["new"])
	assert.Equal(t, base.Models["sonar"], merged.Models["sonar"])
	assert.InDelta(t, 0.025, merged.Search["openai"], 1e-9)
	assert.InDelta(t, 0.01, merged.Search["anthropic"], 1e-9)

	// base is untouched
	assert.Equal(t, ModelRate{Input: 0.15, Output: 0.60}, base.Models["mini"])
	assert.NotContains(t, base.Search, "anthropic")
}
