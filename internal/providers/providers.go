// Package providers implements the uniform model-backend capability over
// heterogeneous runtimes: the hosted OpenAI API, any OpenAI-compatible
// custom endpoint, and a local Ollama runtime through its OpenAI-compatible
// surface. No other place in the code should point directly at a backend SDK.
package providers

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/pkg/api"
	openai "github.com/sashabaranov/go-openai"
)

const (
	TypeOpenAI           = "openai"
	TypeOpenAICompatible = "openai_compatible"
	TypeOllama           = "ollama"

	// Ollama serves an OpenAI-compatible API under /v1
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// Factory builds one Provider per run, applying the run's base_url and
// api_key overrides on top of the static provider configuration.
type Factory struct {
	logger *slog.Logger
}

var _ abstractions.ProviderFactory = (*Factory)(nil)

func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

func (f *Factory) New(providerConfig api.ProviderResource, runConfig *api.RunConfig) (abstractions.Provider, error) {
	baseURL := providerConfig.BaseURL
	if runConfig.BaseURL != "" {
		baseURL = runConfig.BaseURL
	}

	apiKey := runConfig.APIKey
	if apiKey == "" && providerConfig.APIKeyEnv != "" {
		apiKey = os.Getenv(providerConfig.APIKeyEnv)
	}

	switch providerConfig.ProviderType {
	case TypeOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key (set %s or pass api_key)", providerConfig.ProviderID, providerConfig.APIKeyEnv)
		}
		clientConfig := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientConfig.BaseURL = baseURL
		}
		return newOpenAIProvider(providerConfig.ProviderID, clientConfig, f.logger), nil

	case TypeOpenAICompatible:
		if baseURL == "" {
			return nil, fmt.Errorf("provider %s requires a base_url", providerConfig.ProviderID)
		}
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = baseURL
		return newOpenAIProvider(providerConfig.ProviderID, clientConfig, f.logger), nil

	case TypeOllama:
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		// Ollama ignores the bearer token but the client wants one set
		clientConfig := openai.DefaultConfig("ollama")
		clientConfig.BaseURL = baseURL
		return newOpenAIProvider(providerConfig.ProviderID, clientConfig, f.logger), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerConfig.ProviderType)
	}
}
