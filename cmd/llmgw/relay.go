package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/relay"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the forwarding proxy relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Observability)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rl := relay.New(relay.Config{
				Host:           cfg.Relay.Host,
				Port:           cfg.Relay.Port,
				CORSEnabled:    cfg.Relay.CORSEnabled,
				AllowedOrigins: cfg.Relay.AllowedOrigins,
				Upstreams:      cfg.Relay.Upstreams,
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rl.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down relay")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Relay.ShutdownTimeout)
			defer cancel()

			if err := rl.Stop(shutdownCtx); err != nil {
				logger.Error("relay shutdown", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
