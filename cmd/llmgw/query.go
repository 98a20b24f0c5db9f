package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/orchestrator"
	"github.com/upb/llm-gateway/providers"
	"github.com/upb/llm-gateway/providers/openai"
)

type queryFlags struct {
	provider    string
	model       string
	system      string
	temperature float64
	maxTokens   int
	all         bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", openai.ProviderName, "provider to query")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model override")
	cmd.Flags().StringVar(&f.system, "system", "", "system prompt")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature override")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "completion token limit override")
}

// options resolves flags into query options. Numeric overrides only
// apply when the flag was set explicitly, so a zero temperature is
// still expressible.
func (f *queryFlags) options(cmd *cobra.Command) providers.QueryOptions {
	opts := providers.QueryOptions{
		SystemPrompt: f.system,
		Model:        f.model,
	}
	if cmd.Flags().Changed("temperature") {
		opts.Temperature = &f.temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		opts.MaxTokens = &f.maxTokens
	}
	return opts
}

// newOrchestrator wires config, logger, and registry for the one-shot
// commands. The caller owns syncing the returned logger.
func newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Observability)
	if err != nil {
		return nil, nil, err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	cleanup := func() { logger.Sync() }
	return orchestrator.New(registry, logger), cleanup, nil
}

func newQueryCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "query <prompt>",
		Short: "Send a prompt and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			opts := flags.options(cmd)
			if flags.all {
				for _, res := range orch.QueryAll(cmd.Context(), args[0], opts) {
					if res.Err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", res.Provider, res.Err)
						continue
					}
					fmt.Printf("--- %s (%s, %s) ---\n%s\n",
						res.Provider, res.Response.Model, res.Response.Latency, res.Response.Content)
				}
				return nil
			}

			resp, err := orch.Query(cmd.Context(), flags.provider, args[0], opts)
			if err != nil {
				return err
			}
			fmt.Println(resp.Content)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.all, "all", false, "fan out to every configured provider")
	return cmd
}

func newStreamCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "stream <prompt>",
		Short: "Send a prompt and stream the response to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := orch.StreamTo(cmd.Context(), flags.provider, args[0], flags.options(cmd), os.Stdout); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			for _, name := range registry.Names() {
				p, err := registry.Get(name)
				if err != nil {
					return err
				}
				status := "unavailable (no API key)"
				if p.Available() {
					status = "available"
				}
				fmt.Printf("%-16s %s\n", name, status)
			}
			return nil
		},
	}
}
