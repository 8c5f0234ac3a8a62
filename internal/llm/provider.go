package llm

import (
	"context"
	"errors"
	"fmt"

	"caregiver-compass/internal/prompt"
)

// Options bound one completion call. Grounded QA runs at low temperature to
// minimize invention.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Completion is the normalized result shape shared by every backend.
// TokensUsed and FinishReason are diagnostic only; callers must never
// require them.
type Completion struct {
	Text         string
	TokensUsed   int
	FinishReason string
}

// Provider is one interchangeable LLM backend. Implementations are
// stateless between calls and safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, p prompt.Prompt, opts Options) (Completion, error)
}

var (
	// ErrAllProvidersFailed means every configured backend was exhausted.
	ErrAllProvidersFailed = errors.New("all model providers failed")

	// ErrPinnedProviderFailed means the caller pinned a specific backend
	// and it failed; no silent substitution is made.
	ErrPinnedProviderFailed = errors.New("pinned model provider failed")

	// ErrUnknownProvider means the requested backend is not configured.
	ErrUnknownProvider = errors.New("unknown model provider")
)

// ProviderError wraps a backend failure with its retry classification.
// Transient failures (timeouts, rate limits, 5xx) are worth one retry;
// anything else falls through immediately.
type ProviderError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying on the same backend.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// transientStatus classifies HTTP status codes shared by the REST backends.
func transientStatus(status int) bool {
	return status == 408 || status == 429 || status >= 500
}
