// Command console serves the TMS admin console.
package main

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
	"golang.org/x/sync/errgroup"

	"tms-console/internal/apiclient"
	"tms-console/internal/config"
	"tms-console/internal/resource"
	"tms-console/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var listenAddr, backendURL string
	cmd := &cobra.Command{
		Use:           "console",
		Short:         "Serve the TMS admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), listenAddr, backendURL)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL (overrides BACKEND_URL)")
	return cmd
}

func run(parent context.Context, listenAddr, backendURL string) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	if listenAddr != "" {
		_ = os.Setenv("LISTEN_ADDR", listenAddr)
	}
	if backendURL != "" {
		_ = os.Setenv("BACKEND_URL", backendURL)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	registry, err := resource.Default()
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	client := apiclient.NewClient(cfg.BackendURL, "", "")
	client.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	client.Logger = logger

	h := ui.NewHandler(registry, client, cfg.DefaultPageSize, cfg.IsProduction(), logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newRouter(ctx, cfg, h, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("console listening", "addr", cfg.ListenAddr, "backend", cfg.BackendURL, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
