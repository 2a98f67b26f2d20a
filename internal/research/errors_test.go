package research

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/contact-research/pkg/openai"
)

func TestProviderError_Transient(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want bool
	}{
		{"429", &ProviderError{StatusCode: 429}, true},
		{"500", &ProviderError{StatusCode: 500}, true},
		{"503", &ProviderError{StatusCode: 503}, true},
		{"529 overloaded", &ProviderError{StatusCode: 529}, true},
		{"400", &ProviderError{StatusCode: 400}, false},
		{"401", &ProviderError{StatusCode: 401}, false},
		{"404", &ProviderError{StatusCode: 404}, false},
		{"cancelled", &ProviderError{Err: context.Canceled}, false},
		{"deadline", &ProviderError{Err: context.DeadlineExceeded}, true},
		{"conn reset", &ProviderError{Err: fmt.Errorf("write tcp: %w", syscall.ECONNRESET)}, true},
		{"conn refused", &ProviderError{Err: fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)}, true},
		{"dns timeout", &ProviderError{Err: &net.DNSError{IsTimeout: true, Err: "timeout"}}, true},
		{"tls pattern", &ProviderError{Err: errors.New("net/http: TLS handshake timeout")}, true},
		{"plain", &ProviderError{Err: errors.New("invalid request")}, false},
		{"nil", &ProviderError{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Transient())
		})
	}
}

func TestProviderError_Message(t *testing.T) {
	inner := errors.New("boom")

	withStatus := &ProviderError{Provider: "openai", StatusCode: 502, Err: inner}
	assert.Equal(t, "research: openai call failed (status 502): boom", withStatus.Error())

	noStatus := &ProviderError{Provider: "perplexity", Err: inner}
	assert.Equal(t, "research: perplexity call failed: boom", noStatus.Error())
	assert.True(t, errors.Is(noStatus, inner))
}

// openAIStatusError builds the error the openai SDK returns for a non-2xx
// response.
func openAIStatusError(code int) *openai.APIError {
	return &openai.APIError{
		StatusCode: code,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", nil),
		Response:   &http.Response{StatusCode: code},
	}
}

func TestNewProviderError_ExtractsStatus(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", openAIStatusError(503))
	pe := newProviderError("openai", wrapped)
	assert.Equal(t, 503, pe.StatusCode)
	assert.True(t, pe.Transient())

	plain := newProviderError("openai", errors.New("send request: eof"))
	assert.Zero(t, plain.StatusCode)
}
