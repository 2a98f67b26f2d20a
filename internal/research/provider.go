// Package research is the boundary to the web-search capable language model
// that backs enrichment: given a directive, return free-form text.
package research

import (
	"context"
	"regexp"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	oaoption "github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-research/internal/config"
	"github.com/sells-group/contact-research/pkg/anthropic"
	"github.com/sells-group/contact-research/pkg/openai"
	"github.com/sells-group/contact-research/pkg/perplexity"
)

// ErrMissingCredential is returned by New when the provider has no API key.
var ErrMissingCredential = eris.New("research: missing credential")

// Default models per provider.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultPerplexityModel = "sonar-pro"
	DefaultAnthropicModel  = "claude-sonnet-4-5-20250929"
)

const defaultMaxTokens = 2048

// Recency bounds the age of search results. Providers without a recency
// control ignore it.
type Recency string

// Recency windows.
const (
	RecencyAny  Recency = ""
	RecencyYear Recency = "year"
)

// Directive is one research request.
type Directive struct {
	Prompt  string
	Recency Recency
}

// Provider completes a research directive. Implementations perform exactly
// one upstream call per Complete and do not retry.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, d Directive) (string, error)
}

// gpt-5 family models are not served with web search in this deployment.
var experimentalOpenAI = regexp.MustCompile(`(?i)^gpt-5(\b|[-_.])`)

// ResolveModel returns the model a provider will use for a requested model
// name. An empty request selects the provider default.
func ResolveModel(provider, requested string) string {
	switch provider {
	case config.ProviderOpenAI:
		if requested == "" || experimentalOpenAI.MatchString(requested) {
			return DefaultOpenAIModel
		}
	case config.ProviderPerplexity:
		if requested == "" {
			return DefaultPerplexityModel
		}
	case config.ProviderAnthropic:
		if requested == "" {
			return DefaultAnthropicModel
		}
	}
	return requested
}

// New builds the configured provider. The credential is checked here so a
// missing key fails before any call is made. meter may be nil.
func New(cfg config.LLMConfig, meter *Meter) (Provider, error) {
	if cfg.Key == "" {
		return nil, eris.Wrapf(ErrMissingCredential, "provider %q", cfg.Provider)
	}

	model := ResolveModel(cfg.Provider, cfg.Model)
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	// The SDKs retry by default; one directive is one call.
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []oaoption.RequestOption{oaoption.WithMaxRetries(0)}
		if cfg.BaseURL != "" {
			opts = append(opts, oaoption.WithBaseURL(cfg.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, oaoption.WithRequestTimeout(timeout))
		}
		return NewOpenAI(openai.NewClient(cfg.Key, opts...), model, meter), nil

	case config.ProviderPerplexity:
		opts := []perplexity.Option{perplexity.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, perplexity.WithTimeout(timeout))
		}
		return NewPerplexity(perplexity.NewClient(cfg.Key, opts...), model, int(maxTokens), meter), nil

	case config.ProviderAnthropic:
		opts := []option.RequestOption{option.WithMaxRetries(0)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
		return NewAnthropic(anthropic.NewClient(cfg.Key, opts...), model, maxTokens, cfg.WebSearchMaxUses, meter), nil

	default:
		return nil, eris.Errorf("research: unknown provider %q", cfg.Provider)
	}
}
