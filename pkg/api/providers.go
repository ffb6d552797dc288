package api

// ProviderResource contains the configuration details for a model provider
// backend. Loaded from the YAML files under config/providers.
type ProviderResource struct {
	ProviderID   string `mapstructure:"provider_id" yaml:"provider_id" json:"provider_id"`
	ProviderName string `mapstructure:"provider_name" yaml:"provider_name" json:"provider_name"`
	Description  string `mapstructure:"description" yaml:"description" json:"description"`
	// ProviderType selects the client implementation: "openai",
	// "openai_compatible" or "ollama".
	ProviderType string `mapstructure:"provider_type" yaml:"provider_type" json:"provider_type"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty"`
	// APIKeyEnv names the environment variable holding the API key for
	// hosted backends. A per-run api_key overrides it.
	APIKeyEnv    string `mapstructure:"api_key_env" yaml:"api_key_env" json:"-"`
	DefaultModel string `mapstructure:"default_model" yaml:"default_model" json:"default_model,omitempty"`
}

// ProviderResourceList represents response for listing providers
type ProviderResourceList struct {
	TotalCount int                `json:"total_count"`
	Items      []ProviderResource `json:"items,omitempty"`
}
