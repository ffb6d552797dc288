package abstractions

import (
	"context"
	"errors"
	"fmt"

	"github.com/bench-hub/bench-hub/pkg/api"
)

// Provider is the uniform capability over heterogeneous model backends.
// Implementations make exactly one outbound call per Generate invocation and
// never retry internally; the retry policy belongs to the executor so that
// progress accounting stays accurate.
type Provider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, settings api.InferenceSettings) (string, error)
}

// ProviderErrorKind classifies provider failures for the executor's retry
// decision.
type ProviderErrorKind string

const (
	ProviderAuthFailure     ProviderErrorKind = "auth_failure"
	ProviderRateLimited     ProviderErrorKind = "rate_limited"
	ProviderTimeout         ProviderErrorKind = "timeout"
	ProviderUnreachable     ProviderErrorKind = "unreachable"
	ProviderInvalidResponse ProviderErrorKind = "invalid_response"
)

// ProviderError wraps a backend failure with its kind. Every kind is
// retryable except an auth failure, which is fatal to the question
// immediately.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the executor should retry the call with backoff.
func (e *ProviderError) Retryable() bool {
	return e.Kind != ProviderAuthFailure
}

func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

// AsProviderError unwraps err into a ProviderError, or nil if it is not one.
func AsProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// ProviderFactory builds a Provider for one run from the static provider
// configuration plus the run's per-run overrides (base_url, api_key).
type ProviderFactory interface {
	New(providerConfig api.ProviderResource, runConfig *api.RunConfig) (Provider, error)
}
