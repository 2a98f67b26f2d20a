package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answerBody = `{
	"id": "cmpl-123",
	"model": "sonar-pro",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"districtWebsite\": \"https://a.org\"}[1]"}}],
	"citations": ["https://a.org/about"],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5}
}`

// capture starts a server that records the decoded request body and answers
// with status and body.
func capture(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	got := map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestChatCompletion_Answer(t *testing.T) {
	srv, _ := capture(t, http.StatusOK, answerBody)

	resp, err := NewClient("test-key", WithBaseURL(srv.URL+"/")).ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "find it"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cmpl-123", resp.ID)
	assert.Equal(t, `{"districtWebsite": "https://a.org"}[1]`, resp.Content())
	assert.Equal(t, `{"districtWebsite": "https://a.org"}`, resp.Answer())
	assert.Equal(t, []string{"https://a.org/about"}, resp.Citations)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
}

func TestChatCompletion_RequestBody(t *testing.T) {
	maxTokens := 512
	tests := []struct {
		name string
		opts []Option
		req  ChatCompletionRequest
		want map[string]any
		omit []string
	}{
		{
			name: "defaults",
			req:  ChatCompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}},
			want: map[string]any{"model": "sonar-pro"},
			omit: []string{"temperature", "max_tokens", "search_recency_filter"},
		},
		{
			name: "client model",
			opts: []Option{WithModel("sonar")},
			req:  ChatCompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}},
			want: map[string]any{"model": "sonar"},
		},
		{
			name: "recency and max tokens",
			req: ChatCompletionRequest{
				Model:               "sonar-reasoning",
				Messages:            []Message{{Role: "user", Content: "x"}},
				MaxTokens:           &maxTokens,
				SearchRecencyFilter: RecencyYear,
			},
			want: map[string]any{"model": "sonar-reasoning", "max_tokens": float64(512), "search_recency_filter": "year"},
			omit: []string{"temperature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := capture(t, http.StatusOK, answerBody)
			opts := append([]Option{WithBaseURL(srv.URL)}, tt.opts...)

			_, err := NewClient("test-key", opts...).ChatCompletion(context.Background(), tt.req)
			require.NoError(t, err)
			for k, v := range tt.want {
				assert.Equal(t, v, (*got)[k], k)
			}
			for _, k := range tt.omit {
				assert.NotContains(t, *got, k)
			}
		})
	}
}

func TestChatCompletion_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"structured", http.StatusTooManyRequests, `{"error": {"message": "rate limited", "type": "rate_limit"}}`, "rate limited"},
		{"string", http.StatusUnauthorized, `{"error": "invalid api key"}`, "invalid api key"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := capture(t, tt.status, tt.body)

			resp, err := NewClient("test-key", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), ChatCompletionRequest{})
			require.Error(t, err)
			assert.Nil(t, resp)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestChatCompletion_DecodeError(t *testing.T) {
	srv, _ := capture(t, http.StatusOK, `{invalid json`)

	_, err := NewClient("test-key", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestChatCompletion_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond)).
		ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestAnswer(t *testing.T) {
	tests := []struct {
		name string
		resp *ChatCompletionResponse
		want string
	}{
		{"nil", nil, ""},
		{"no choices", &ChatCompletionResponse{Citations: []string{"https://a.org"}}, ""},
		{
			name: "markers without citations kept",
			resp: &ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "see [1]"}}}},
			want: "see [1]",
		},
		{
			name: "markers stripped",
			resp: &ChatCompletionResponse{
				Choices:   []Choice{{Message: Message{Content: `{"summary": "Bond passed[1][2]. Levy failed[12]."}`}}},
				Citations: []string{"https://a.org", "https://b.org"},
			},
			want: `{"summary": "Bond passed. Levy failed."}`,
		},
		{
			name: "non-numeric brackets kept",
			resp: &ChatCompletionResponse{
				Choices:   []Choice{{Message: Message{Content: `{"news": [{"title": "[Update] Board"}]}`}}},
				Citations: []string{"https://a.org"},
			},
			want: `{"news": [{"title": "[Update] Board"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Answer())
		})
	}
}
