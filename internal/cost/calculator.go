package cost

// Rates holds pricing used to estimate the spend of a research run.
type Rates struct {
	// Models maps a model id to its token pricing.
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
	// Search maps a provider name to its fee per web search (or per query
	// for search-native providers).
	Search map[string]float64 `yaml:"search" mapstructure:"search"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Usage is the accumulated consumption of one provider.
type Usage struct {
	Calls        int64 `json:"calls"`
	Searches     int64 `json:"searches"`
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Add returns the field-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		Calls:        u.Calls + o.Calls,
		Searches:     u.Searches + o.Searches,
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the token cost of a model. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int64) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Search computes the web search fees of a provider.
func (c *Calculator) Search(provider string, searches int64) float64 {
	return float64(searches) * c.rates.Search[provider]
}

// Estimate returns the total estimated USD cost of a provider's usage.
func (c *Calculator) Estimate(provider, model string, u Usage) float64 {
	return c.Tokens(model, u.InputTokens, u.OutputTokens) + c.Search(provider, u.Searches)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
			"gpt-4.1":                    {Input: 2.00, Output: 8.00},
			"sonar":                      {Input: 1.00, Output: 1.00},
			"sonar-pro":                  {Input: 3.00, Output: 15.00},
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		Search: map[string]float64{
			"openai":     0.025,
			"perplexity": 0.005,
			"anthropic":  0.01,
		},
	}
}

// Merge returns r with every model and search rate set in o overriding it.
func (r Rates) Merge(o Rates) Rates {
	out := Rates{
		Models: make(map[string]ModelRate, len(r.Models)+len(o.Models)),
		Search: make(map[string]float64, len(r.Search)+len(o.Search)),
	}
	for k, v := range r.Models {
		out.Models[k] = v
	}
	for k, v := range o.Models {
		out.Models[k] = v
	}
	for k, v := range r.Search {
		out.Search[k] = v
	}
	for k, v := range o.Search {
		out.Search[k] = v
	}
	return out
}
