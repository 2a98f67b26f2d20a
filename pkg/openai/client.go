package openai

import (
	"context"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rotisserie/eris"
)

const defaultModel = "gpt-4o-mini"

// APIError is the error returned for non-success responses. StatusCode holds
// the HTTP status.
type APIError = sdk.Error

// Client defines the OpenAI Responses API operations used by the research
// providers.
type Client interface {
	CreateResponse(ctx context.Context, req ResponseRequest) (*Response, error)
}

// ResponseRequest is our own request type for CreateResponse.
type ResponseRequest struct {
	Model string
	Input string
	// WebSearch attaches the hosted web_search tool.
	WebSearch bool
	// RequireTool forces the model to call a tool before answering.
	RequireTool bool
	Temperature *float64
}

// Response is our own response type from CreateResponse.
type Response struct {
	ID     string
	Model  string
	Status string
	// Text is the concatenated output_text of every message item.
	Text           string
	WebSearchCalls int64
	Usage          Usage
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// sdkClient implements Client using the official openai-go SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new OpenAI client backed by the SDK. Extra request
// options (base URL, retries, timeouts) are passed through to the SDK.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{
		client: sdk.NewClient(all...),
	}
}

func (c *sdkClient) CreateResponse(ctx context.Context, req ResponseRequest) (*Response, error) {
	resp, err := c.client.Responses.New(ctx, toSDKParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "openai: create response")
	}
	return fromSDKResponse(resp), nil
}

func toSDKParams(req ResponseRequest) responses.ResponseNewParams {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{OfString: sdk.String(req.Input)},
	}

	if req.WebSearch {
		params.Tools = []responses.ToolUnionParam{{
			OfWebSearch: &responses.WebSearchToolParam{Type: responses.WebSearchToolTypeWebSearch},
		}}
	}

	if req.RequireTool {
		params.ToolChoice = responses.ResponseNewParamsToolChoiceUnion{
			OfToolChoiceMode: param.NewOpt(responses.ToolChoiceOptionsRequired),
		}
	}

	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func fromSDKResponse(resp *responses.Response) *Response {
	out := &Response{
		ID:     resp.ID,
		Model:  string(resp.Model),
		Status: string(resp.Status),
		Text:   resp.OutputText(),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, item := range resp.Output {
		if item.Type == "web_search_call" {
			out.WebSearchCalls++
		}
	}
	return out
}
