package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd polls the build and serves the dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the build and serve the dashboard",
	Long: `Start polling the configured build and serve the live dashboard.

The server will:
  - Load configuration from the specified YAML file
  - Open the theme preference store
  - Poll the build's status on every interval
  - Serve the dashboard UI on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  buildwatch serve -c config.yaml
  buildwatch serve --config /etc/buildwatch/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConfigFlag(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"bindings", len(cfg.Bindings),
		"theme_store", cfg.Theme.Store,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	theme, closeTheme, err := openTheme(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeTheme(); err != nil {
			logger.Warn("failed to close theme store", "error", err)
		}
	}()

	w, err := newWatcher(cfg, theme, logger)
	if err != nil {
		return err
	}

	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	// start watcher - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
