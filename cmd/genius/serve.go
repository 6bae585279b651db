package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/cli"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/presentation/tui"
	httpAdapter "github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine behind a JSON API with live session streams over SSE and
WebSockets, Prometheus metrics on /metrics, and a sweeper that applies the
timeout policy to stalled human turns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		stack, err := cli.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go stack.Engine.RunSweeper(ctx, cfg.SweepInterval)

		srv := &http.Server{
			Addr: cfg.Addr,
			Handler: httpAdapter.NewHandler(stack.Engine,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithMetrics(stack.Registry),
				httpAdapter.WithOriginPatterns(cfg.WSOrigins...),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				tui.PrintBanner(cmd.ErrOrStderr(), genius.Version)
			}
			logger.Info("server listening", "addr", srv.Addr, "store", stack.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutdown signal received")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on; overrides GENIUS_ADDR")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
