package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		logger, err := newLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("text format", func(t *testing.T) {
		logger, err := newLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "text"})
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := newLogger(config.ObservabilityConfig{LogLevel: "verbose", LogFormat: "json"})
		assert.Error(t, err)
	})
}

func TestBuildRegistry(t *testing.T) {
	baseCfg := func() *config.Config {
		return &config.Config{
			Providers: config.ProvidersConfig{
				OpenAI: config.OpenAIConfig{
					APIKey:  "sk-test",
					BaseURL: "https://api.openai.com/v1",
					Model:   "gpt-4o-mini",
				},
			},
		}
	}

	t.Run("environment section only", func(t *testing.T) {
		registry, err := buildRegistry(baseCfg())
		require.NoError(t, err)

		assert.Equal(t, []string{"openai"}, registry.Names())
		p, err := registry.Get("openai")
		require.NoError(t, err)
		assert.True(t, p.Available())
	})

	t.Run("manifest adds providers in order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "providers.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - name: groq
    api_key: gsk-test
    base_url: https://api.groq.com/openai/v1
  - name: together
    base_url: https://api.together.xyz/v1
`), 0o600))

		cfg := baseCfg()
		cfg.Providers.Manifest = path

		registry, err := buildRegistry(cfg)
		require.NoError(t, err)

		assert.Equal(t, []string{"openai", "groq", "together"}, registry.Names())

		together, err := registry.Get("together")
		require.NoError(t, err)
		assert.False(t, together.Available(), "no key resolved for this entry")
	})

	t.Run("manifest entry colliding with the environment section", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "providers.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - name: openai
    api_key: sk-other
    base_url: https://other.example.com/v1
`), 0o600))

		cfg := baseCfg()
		cfg.Providers.Manifest = path

		_, err := buildRegistry(cfg)
		assert.Error(t, err)
	})

	t.Run("unreadable manifest", func(t *testing.T) {
		cfg := baseCfg()
		cfg.Providers.Manifest = filepath.Join(t.TempDir(), "absent.yaml")

		_, err := buildRegistry(cfg)
		assert.Error(t, err)
	})
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"relay", "query", "stream", "providers"} {
		assert.Contains(t, names, want)
	}
}
