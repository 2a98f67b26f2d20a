package research

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/sells-group/contact-research/pkg/openai"
	"github.com/sells-group/contact-research/pkg/perplexity"
)

// ProviderError is a transport-level failure of a provider call: the request
// could not be sent, or the upstream answered with a non-success status.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("research: %s call failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("research: %s call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is likely to clear on its own
// (rate limiting, upstream 5xx, network timeouts). Cancellation is not
// transient.
func (e *ProviderError) Transient() bool {
	if e.StatusCode != 0 {
		return transientStatus(e.StatusCode)
	}
	return transientErr(e.Err)
}

// newProviderError wraps a client error, extracting the HTTP status from the
// client-specific error types.
func newProviderError(provider string, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Err: err}

	var oaErr *openai.APIError
	var pxErr *perplexity.APIError
	var sdkErr *sdk.Error
	switch {
	case errors.As(err, &oaErr):
		pe.StatusCode = oaErr.StatusCode
	case errors.As(err, &pxErr):
		pe.StatusCode = pxErr.StatusCode
	case errors.As(err, &sdkErr):
		pe.StatusCode = sdkErr.StatusCode
	}
	return pe
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return code >= 520 && code <= 529
	}
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

func transientErr(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
