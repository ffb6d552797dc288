package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/pkg/api"
	openai "github.com/sashabaranov/go-openai"
)

// openAIProvider speaks the chat-completions protocol. It covers the hosted
// OpenAI API, OpenAI-compatible endpoints and local Ollama, which differ
// only in base URL and auth.
type openAIProvider struct {
	name   string
	client *openai.Client
	logger *slog.Logger
}

var _ abstractions.Provider = (*openAIProvider)(nil)

func newOpenAIProvider(name string, clientConfig openai.ClientConfig, logger *slog.Logger) *openAIProvider {
	return &openAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

func (p *openAIProvider) Name() string {
	return p.name
}

// Generate performs exactly one chat-completion call. The retry policy is
// the executor's responsibility so progress accounting stays accurate.
func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string, settings api.InferenceSettings) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if settings.Temperature != nil {
		req.Temperature = *settings.Temperature
	}
	if settings.TopP != nil {
		req.TopP = *settings.TopP
	}
	if settings.MaxTokens != nil {
		req.MaxTokens = *settings.MaxTokens
	}
	if settings.Seed != nil {
		req.Seed = settings.Seed
	}
	// top_k is not part of the chat-completions protocol and is dropped here

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		classified := classifyError(err)
		p.logger.Debug("Provider call failed", "provider", p.name, "kind", classified.Kind, "error", err.Error())
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", abstractions.NewProviderError(abstractions.ProviderInvalidResponse, fmt.Errorf("response contained no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError maps SDK and transport failures onto the engine's provider
// error taxonomy.
func classifyError(err error) *abstractions.ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return abstractions.NewProviderError(abstractions.ProviderAuthFailure, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return abstractions.NewProviderError(abstractions.ProviderRateLimited, err)
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout || apiErr.HTTPStatusCode == http.StatusGatewayTimeout:
			return abstractions.NewProviderError(abstractions.ProviderTimeout, err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return abstractions.NewProviderError(abstractions.ProviderUnreachable, err)
		default:
			return abstractions.NewProviderError(abstractions.ProviderInvalidResponse, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return abstractions.NewProviderError(abstractions.ProviderTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return abstractions.NewProviderError(abstractions.ProviderTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return abstractions.NewProviderError(abstractions.ProviderUnreachable, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return abstractions.NewProviderError(abstractions.ProviderUnreachable, err)
	}

	return abstractions.NewProviderError(abstractions.ProviderInvalidResponse, err)
}
