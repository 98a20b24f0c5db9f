package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/upb/llm-gateway/providers"
	"github.com/upb/llm-gateway/utils"
)

// ProviderManifest declares additional OpenAI-compatible providers beyond
// the ones configured through the environment. Example:
//
//	providers:
//	  - name: groq
//	    api_key_env: GROQ_API_KEY
//	    base_url: https://api.groq.com/openai/v1
//	    model: llama-3.1-8b-instant
type ProviderManifest struct {
	Providers []ManifestEntry `yaml:"providers"`
}

// ManifestEntry describes one OpenAI-compatible provider endpoint
type ManifestEntry struct {
	Name        string   `yaml:"name" validate:"required"`
	APIKey      string   `yaml:"api_key"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	BaseURL     string   `yaml:"base_url" validate:"required,url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `yaml:"max_tokens" validate:"omitempty,gte=1"`
	ProxyURL    string   `yaml:"proxy_url" validate:"omitempty,url"`
}

// Key resolves the entry's API key, favoring the inline value over the
// environment indirection
func (e ManifestEntry) Key() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.APIKeyEnv != "" {
		return os.Getenv(e.APIKeyEnv)
	}
	return ""
}

// ProviderConfig converts the entry into an adapter configuration. Retry
// and transport settings come from base, typically the environment-level
// OpenAI section, so manifest providers share the process-wide policy.
func (e ManifestEntry) ProviderConfig(base providers.Config) providers.Config {
	cfg := base
	cfg.Name = e.Name
	cfg.APIKey = e.Key()
	cfg.BaseURL = e.BaseURL
	if e.ProxyURL != "" {
		cfg.ProxyURL = e.ProxyURL
	}
	if e.Model != "" {
		cfg.Model = e.Model
	}
	if e.Temperature != nil {
		cfg.Temperature = e.Temperature
	}
	if e.MaxTokens != nil {
		cfg.MaxTokens = e.MaxTokens
	}
	return cfg
}

// LoadManifest reads and validates a provider manifest file
func LoadManifest(path string) (*ProviderManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider manifest: %w", err)
	}

	var manifest ProviderManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing provider manifest: %w", err)
	}

	seen := make(map[string]bool, len(manifest.Providers))
	for i := range manifest.Providers {
		entry := &manifest.Providers[i]
		if err := utils.ValidateStruct(entry); err != nil {
			return nil, fmt.Errorf("provider manifest entry %d (%s): %w", i, entry.Name, err)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("provider manifest entry %d: duplicate name %q", i, entry.Name)
		}
		seen[entry.Name] = true
	}
	return &manifest, nil
}
