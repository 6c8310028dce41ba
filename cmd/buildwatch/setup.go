package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/buildwatch"
	"github.com/jpalmerr/buildwatch/config"
	"github.com/spf13/cobra"
)

// addConfigFlag registers the required --config flag on cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openTheme builds the configured preference store and the service on top
// of it. The returned close function is never nil.
func openTheme(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*buildwatch.ThemeService, func() error, error) {
	store, closeStore, err := config.BuildThemeStore(ctx, cfg.Theme)
	if err != nil {
		return nil, nil, err
	}
	return buildwatch.NewThemeService(ctx, store, logger), closeStore, nil
}

// newWatcher assembles a Watcher from cfg. extra options are applied last.
func newWatcher(cfg *config.Config, theme *buildwatch.ThemeService, logger *slog.Logger, extra ...buildwatch.Option) (*buildwatch.Watcher, error) {
	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build options: %w", err)
	}

	opts = append(opts,
		buildwatch.WithLogger(logger),
		buildwatch.WithThemeService(theme),
	)
	opts = append(opts, extra...)

	w, err := buildwatch.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return w, nil
}
