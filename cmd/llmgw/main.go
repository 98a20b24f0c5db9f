// Command llmgw runs the LLM gateway: a forwarding relay for provider
// APIs, plus one-shot query and streaming commands against the
// configured providers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/providers"
	"github.com/upb/llm-gateway/providers/openai"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "llmgw",
		Short:         "LLM gateway: provider querying and a forwarding relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRelayCmd(), newQueryCmd(), newStreamCmd(), newProvidersCmd())
	return root
}

// newLogger builds the process logger from the observability section
func newLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.LogFormat == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// buildRegistry constructs every configured adapter: the environment's
// OpenAI section plus any manifest entries
func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	base := cfg.Providers.OpenAI.ProviderConfig()
	if err := registry.Register(openai.New(base)); err != nil {
		return nil, err
	}

	if cfg.Providers.Manifest != "" {
		manifest, err := config.LoadManifest(cfg.Providers.Manifest)
		if err != nil {
			return nil, err
		}
		for _, entry := range manifest.Providers {
			if err := registry.Register(openai.New(entry.ProviderConfig(base))); err != nil {
				return nil, err
			}
		}
	}

	return registry, nil
}
