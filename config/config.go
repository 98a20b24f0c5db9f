package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/upb/llm-gateway/providers"
	"github.com/upb/llm-gateway/providers/openai"
	"github.com/upb/llm-gateway/utils"
)

// Config represents the complete gateway configuration
type Config struct {
	Environment   string
	Relay         RelayConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig
}

// RelayConfig holds proxy relay configuration
type RelayConfig struct {
	Host            string
	Port            int `validate:"gte=0,lte=65535"`
	CORSEnabled     bool
	AllowedOrigins  []string
	Upstreams       map[string]string
	ShutdownTimeout time.Duration
}

// ProvidersConfig holds LLM provider configuration. Manifest optionally
// names a YAML file declaring additional OpenAI-compatible providers.
type ProvidersConfig struct {
	OpenAI   OpenAIConfig
	Manifest string
}

// OpenAIConfig holds the OpenAI adapter configuration
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string `validate:"omitempty,url"`
	ProxyURL    string `validate:"omitempty,url"`
	Model       string
	Temperature *float64 `validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `validate:"omitempty,gte=1"`
	Timeout     time.Duration
	MaxRetries  int `validate:"gte=0"`
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	Jitter      bool
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
}

// New creates a Config by loading environment variables, with an optional
// .env file taken into account first
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Relay: RelayConfig{
			Host:            getEnv("RELAY_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("RELAY_PORT", 8090),
			CORSEnabled:     getEnvAsBool("RELAY_CORS_ENABLED", true),
			AllowedOrigins:  getEnvAsSlice("RELAY_ALLOWED_ORIGINS", []string{"*"}),
			Upstreams:       loadUpstreams(),
			ShutdownTimeout: getEnvAsDuration("RELAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:      getEnv("OPENAI_API_KEY", ""),
				BaseURL:     getEnv("OPENAI_BASE_URL", openai.DefaultBaseURL),
				ProxyURL:    getEnv("OPENAI_PROXY_URL", ""),
				Model:       getEnv("OPENAI_MODEL", openai.DefaultModel),
				Temperature: getEnvAsFloatPtr("OPENAI_TEMPERATURE"),
				MaxTokens:   getEnvAsIntPtr("OPENAI_MAX_TOKENS"),
				Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
				MaxRetries:  getEnvAsInt("OPENAI_MAX_RETRIES", 3),
				MinBackoff:  getEnvAsDuration("OPENAI_MIN_BACKOFF", 1*time.Second),
				MaxBackoff:  getEnvAsDuration("OPENAI_MAX_BACKOFF", 30*time.Second),
				Jitter:      getEnvAsBool("OPENAI_RETRY_JITTER", true),
			},
			Manifest: getEnv("PROVIDERS_MANIFEST", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints and cross-field consistency
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		if fields := utils.GetValidationFields(err); fields != nil {
			for field, msg := range fields {
				return fmt.Errorf("%s: %s", field, msg)
			}
		}
		return err
	}

	oa := c.Providers.OpenAI
	if oa.MinBackoff > 0 && oa.MaxBackoff > 0 && oa.MinBackoff > oa.MaxBackoff {
		return fmt.Errorf("OPENAI_MIN_BACKOFF must not exceed OPENAI_MAX_BACKOFF")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the relay's host:port listen address
func (c RelayConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig converts the section into an adapter configuration
func (c OpenAIConfig) ProviderConfig() providers.Config {
	return providers.Config{
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		BaseURL:     c.BaseURL,
		ProxyURL:    c.ProxyURL,
		MaxRetries:  c.MaxRetries,
		MinBackoff:  c.MinBackoff,
		MaxBackoff:  c.MaxBackoff,
		Jitter:      c.Jitter,
		Timeout:     c.Timeout,
	}
}

// loadUpstreams builds the relay's provider-to-base-URL table. Any
// RELAY_UPSTREAM_<NAME> variable adds or overrides an entry under the
// lowercased name.
func loadUpstreams() map[string]string {
	upstreams := map[string]string{
		openai.ProviderName: openai.DefaultBaseURL,
	}

	const prefix = "RELAY_UPSTREAM_"
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(parts[0], prefix))
		if name == "" {
			continue
		}
		upstreams[name] = parts[1]
	}
	return upstreams
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func getEnvAsFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func getEnvAsIntPtr(key string) *int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return &parsed
		}
	}
	return nil
}
