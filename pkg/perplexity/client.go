package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar-pro"
	defaultTimeout = 120 * time.Second

	// maxErrorBody caps how much of a failed response is kept on APIError.
	maxErrorBody = 4 << 10
)

// Recency is a search_recency_filter window.
type Recency string

// RecencyYear limits search results to the past year.
const RecencyYear Recency = "year"

// Client performs chat completions against the Perplexity API. Sonar models
// search the web on every request.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ChatCompletionRequest is the request body for POST /chat/completions.
type ChatCompletionRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         *float64  `json:"temperature,omitempty"`
	MaxTokens           *int      `json:"max_tokens,omitempty"`
	SearchRecencyFilter Recency   `json:"search_recency_filter,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response from POST /chat/completions.
// Citations lists the sources behind the numbered [n] markers in the answer.
type ChatCompletionResponse struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Choices   []Choice `json:"choices"`
	Citations []string `json:"citations,omitempty"`
	Usage     Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

var citationMarker = regexp.MustCompile(`\[\d{1,3}\]`)

// Content returns the first choice's message text, or "" when there is none.
func (r *ChatCompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Answer is Content with the numbered citation markers removed. Markers are
// only stripped when the response carries citations.
func (r *ChatCompletionResponse) Answer() string {
	if r == nil || len(r.Citations) == 0 {
		return r.Content()
	}
	return citationMarker.ReplaceAllString(r.Content(), "")
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("perplexity: status %d: %s", e.StatusCode, e.Message)
}

// newAPIError reads the error message out of a failed response. The body is
// either {"error": {"message": ...}}, {"error": "..."} or free text.
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		var s string
		switch {
		case json.Unmarshal(envelope.Error, &detail) == nil && detail.Message != "":
			msg = detail.Message
		case json.Unmarshal(envelope.Error, &s) == nil && s != "":
			msg = s
		}
	}
	return &APIError{StatusCode: status, Message: msg}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithTimeout bounds each request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Perplexity API client. The client never retries.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(resp.StatusCode, errBody)
	}

	var out ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "perplexity: decode response")
	}
	return &out, nil
}
