package research

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/contact-research/internal/config"
	"github.com/sells-group/contact-research/internal/cost"
	"github.com/sells-group/contact-research/pkg/anthropic"
	"github.com/sells-group/contact-research/pkg/openai"
	"github.com/sells-group/contact-research/pkg/perplexity"
)

// perplexitySystem keeps sonar answers to the requested output format.
const perplexitySystem = "You are a research assistant. Follow the user's output format exactly."

type openAIProvider struct {
	client openai.Client
	model  string
	meter  *Meter
}

// NewOpenAI returns a Provider backed by the OpenAI Responses API with the
// web_search tool required on every call.
func NewOpenAI(client openai.Client, model string, meter *Meter) Provider {
	return &openAIProvider{client: client, model: model, meter: meter}
}

func (p *openAIProvider) Name() string  { return config.ProviderOpenAI }
func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) Complete(ctx context.Context, d Directive) (string, error) {
	resp, err := p.client.CreateResponse(ctx, openai.ResponseRequest{
		Model:       p.model,
		Input:       d.Prompt,
		WebSearch:   true,
		RequireTool: true,
	})
	if err != nil {
		return "", newProviderError(p.Name(), err)
	}

	p.meter.Record(p.Name(), cost.Usage{
		Calls:        1,
		Searches:     resp.WebSearchCalls,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})
	return resp.Text, nil
}

type perplexityProvider struct {
	client    perplexity.Client
	model     string
	maxTokens int
	meter     *Meter
}

// NewPerplexity returns a Provider backed by a search-native sonar model.
// Every call is one search query.
func NewPerplexity(client perplexity.Client, model string, maxTokens int, meter *Meter) Provider {
	return &perplexityProvider{client: client, model: model, maxTokens: maxTokens, meter: meter}
}

func (p *perplexityProvider) Name() string  { return config.ProviderPerplexity }
func (p *perplexityProvider) Model() string { return p.model }

func (p *perplexityProvider) Complete(ctx context.Context, d Directive) (string, error) {
	req := perplexity.ChatCompletionRequest{
		Model: p.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: perplexitySystem},
			{Role: "user", Content: d.Prompt},
		},
	}
	if p.maxTokens > 0 {
		req.MaxTokens = &p.maxTokens
	}
	if d.Recency == RecencyYear {
		req.SearchRecencyFilter = perplexity.RecencyYear
	}

	resp, err := p.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", newProviderError(p.Name(), err)
	}

	p.meter.Record(p.Name(), cost.Usage{
		Calls:        1,
		Searches:     1,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	})
	zap.L().Debug("research: perplexity citations",
		zap.String("model", p.model),
		zap.Strings("citations", resp.Citations),
	)
	return resp.Answer(), nil
}

type anthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	maxUses   int64
	meter     *Meter
}

// NewAnthropic returns a Provider backed by the Anthropic Messages API with
// the server-side web search tool enabled. maxUses <= 0 leaves the number of
// searches per call to the API default.
func NewAnthropic(client anthropic.Client, model string, maxTokens, maxUses int64, meter *Meter) Provider {
	return &anthropicProvider{client: client, model: model, maxTokens: maxTokens, maxUses: maxUses, meter: meter}
}

func (p *anthropicProvider) Name() string  { return config.ProviderAnthropic }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Complete(ctx context.Context, d Directive) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: d.Prompt}},
		WebSearch: &anthropic.WebSearchTool{MaxUses: p.maxUses},
	})
	if err != nil {
		return "", newProviderError(p.Name(), err)
	}

	resp.Usage.LogCost(p.model, "research")
	p.meter.Record(p.Name(), cost.Usage{
		Calls:        1,
		Searches:     resp.Usage.WebSearchRequests,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})
	return resp.Text(), nil
}
