package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/providers/openai"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.False(t, cfg.IsProduction())
				assert.Equal(t, "0.0.0.0", cfg.Relay.Host)
				assert.Equal(t, 8090, cfg.Relay.Port)
				assert.True(t, cfg.Relay.CORSEnabled)
				assert.Equal(t, []string{"*"}, cfg.Relay.AllowedOrigins)
				assert.Equal(t, 10*time.Second, cfg.Relay.ShutdownTimeout)
				assert.Equal(t, openai.DefaultBaseURL, cfg.Relay.Upstreams["openai"])

				assert.Empty(t, cfg.Providers.OpenAI.APIKey)
				assert.Equal(t, openai.DefaultBaseURL, cfg.Providers.OpenAI.BaseURL)
				assert.Equal(t, openai.DefaultModel, cfg.Providers.OpenAI.Model)
				assert.Nil(t, cfg.Providers.OpenAI.Temperature)
				assert.Nil(t, cfg.Providers.OpenAI.MaxTokens)
				assert.Equal(t, 120*time.Second, cfg.Providers.OpenAI.Timeout)
				assert.Equal(t, 3, cfg.Providers.OpenAI.MaxRetries)
				assert.Equal(t, time.Second, cfg.Providers.OpenAI.MinBackoff)
				assert.Equal(t, 30*time.Second, cfg.Providers.OpenAI.MaxBackoff)
				assert.True(t, cfg.Providers.OpenAI.Jitter)

				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "everything overridden",
			envVars: map[string]string{
				"ENVIRONMENT":            "production",
				"RELAY_HOST":             "127.0.0.1",
				"RELAY_PORT":             "9000",
				"RELAY_CORS_ENABLED":     "false",
				"RELAY_ALLOWED_ORIGINS":  "http://a.example.com, http://b.example.com",
				"RELAY_SHUTDOWN_TIMEOUT": "5s",
				"OPENAI_API_KEY":         "sk-test",
				"OPENAI_BASE_URL":        "https://openai.internal/v1",
				"OPENAI_PROXY_URL":       "http://localhost:8090",
				"OPENAI_MODEL":           "gpt-4o",
				"OPENAI_TEMPERATURE":     "0.5",
				"OPENAI_MAX_TOKENS":      "256",
				"OPENAI_TIMEOUT":         "30s",
				"OPENAI_MAX_RETRIES":     "5",
				"OPENAI_MIN_BACKOFF":     "100ms",
				"OPENAI_MAX_BACKOFF":     "2s",
				"OPENAI_RETRY_JITTER":    "false",
				"PROVIDERS_MANIFEST":     "providers.yaml",
				"LOG_LEVEL":              "debug",
				"LOG_FORMAT":             "text",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "127.0.0.1:9000", cfg.Relay.Address())
				assert.False(t, cfg.Relay.CORSEnabled)
				assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, cfg.Relay.AllowedOrigins)
				assert.Equal(t, 5*time.Second, cfg.Relay.ShutdownTimeout)

				oa := cfg.Providers.OpenAI
				assert.Equal(t, "sk-test", oa.APIKey)
				assert.Equal(t, "https://openai.internal/v1", oa.BaseURL)
				assert.Equal(t, "http://localhost:8090", oa.ProxyURL)
				assert.Equal(t, "gpt-4o", oa.Model)
				require.NotNil(t, oa.Temperature)
				assert.Equal(t, 0.5, *oa.Temperature)
				require.NotNil(t, oa.MaxTokens)
				assert.Equal(t, 256, *oa.MaxTokens)
				assert.Equal(t, 30*time.Second, oa.Timeout)
				assert.Equal(t, 5, oa.MaxRetries)
				assert.Equal(t, 100*time.Millisecond, oa.MinBackoff)
				assert.Equal(t, 2*time.Second, oa.MaxBackoff)
				assert.False(t, oa.Jitter)

				assert.Equal(t, "providers.yaml", cfg.Providers.Manifest)
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "text", cfg.Observability.LogFormat)
			},
		},
		{
			name: "unparseable numbers fall back to defaults",
			envVars: map[string]string{
				"RELAY_PORT":         "not-a-port",
				"OPENAI_MAX_RETRIES": "many",
				"OPENAI_TIMEOUT":     "soon",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8090, cfg.Relay.Port)
				assert.Equal(t, 3, cfg.Providers.OpenAI.MaxRetries)
				assert.Equal(t, 120*time.Second, cfg.Providers.OpenAI.Timeout)
			},
		},
		{
			name:    "invalid log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "invalid log format",
			envVars: map[string]string{"LOG_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"RELAY_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "base URL must be a URL",
			envVars: map[string]string{"OPENAI_BASE_URL": "not a url"},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			envVars: map[string]string{"OPENAI_TEMPERATURE": "3.5"},
			wantErr: true,
		},
		{
			name: "min backoff above max backoff",
			envVars: map[string]string{
				"OPENAI_MIN_BACKOFF": "10s",
				"OPENAI_MAX_BACKOFF": "1s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadUpstreams(t *testing.T) {
	os.Clearenv()
	os.Setenv("RELAY_UPSTREAM_GROQ", "https://api.groq.com/openai/v1")
	os.Setenv("RELAY_UPSTREAM_OPENAI", "https://openai.internal/v1")

	upstreams := loadUpstreams()

	assert.Equal(t, "https://api.groq.com/openai/v1", upstreams["groq"])
	assert.Equal(t, "https://openai.internal/v1", upstreams["openai"], "env entries override the default")
}

func TestOpenAIConfig_ProviderConfig(t *testing.T) {
	temperature := 0.7
	maxTokens := 512
	section := OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     "https://api.openai.com/v1",
		ProxyURL:    "http://localhost:8090",
		Model:       "gpt-4o",
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Timeout:     60 * time.Second,
		MaxRetries:  2,
		MinBackoff:  time.Second,
		MaxBackoff:  8 * time.Second,
		Jitter:      true,
	}

	cfg := section.ProviderConfig()

	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8090", cfg.ProxyURL)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, &temperature, cfg.Temperature)
	assert.Equal(t, &maxTokens, cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.MinBackoff)
	assert.Equal(t, 8*time.Second, cfg.MaxBackoff)
	assert.True(t, cfg.Jitter)
	assert.Empty(t, cfg.Name, "the environment section keeps the adapter's native identity")
}
