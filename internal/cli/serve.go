// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/llm"
	"github.com/jeranaias/rolechat/internal/logging"
	"github.com/jeranaias/rolechat/internal/persona"
	"github.com/jeranaias/rolechat/internal/relay"
	"github.com/jeranaias/rolechat/internal/server"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		port int
		host string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		Long: `Run the relay server that forwards conversations to the generation API.

The provider and its credentials come from the [llm] config section or the
ROLECHAT_API_KEY / GEMINI_API_KEY environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config, 5001)")
	cmd.Flags().StringVar(&host, "host", "", "Listen host (default 127.0.0.1)")
	return cmd
}

// newServer wires the relay stack described by cfg.
func newServer(cfg *config.Config, logger *slog.Logger) (*server.Server, error) {
	gen, err := llm.New(cfg.LLMOptions())
	if err != nil {
		return nil, NewCommandError("serve", "start", "generation provider unavailable", err)
	}

	svc := relay.New(persona.Default(), gen,
		relay.WithTimeout(cfg.Server.RelayTimeout()),
		relay.WithLogger(logger),
	)
	srv := server.NewServer(cfg.Server.Port, svc).WithLogger(logger)
	if cfg.Server.Host != "" {
		srv.WithHost(cfg.Server.Host)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := server.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		srv.WithCORS(cors)
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		srv.WithRateLimiter(server.NewRateLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst))
	}
	return srv, nil
}

// runServe serves until ctx is done or SIGINT/SIGTERM arrives.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
