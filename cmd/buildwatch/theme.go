package main

import (
	"context"
	"fmt"

	"github.com/jpalmerr/buildwatch"
	"github.com/spf13/cobra"
)

// themeCmd groups the theme preference subcommands.
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or toggle the stored dashboard theme",
	Long: `Read or change the light/dark theme preference in the store configured
under the theme section of the config file.

Example:
  buildwatch theme show -c config.yaml
  buildwatch theme toggle -c config.yaml
  buildwatch theme set dark -c config.yaml`,
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTheme(cmd, func(ctx context.Context, ts *buildwatch.ThemeService) (buildwatch.Theme, error) {
			return ts.Current(), nil
		})
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between light and dark and persist the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTheme(cmd, func(ctx context.Context, ts *buildwatch.ThemeService) (buildwatch.Theme, error) {
			return ts.Toggle(ctx)
		})
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set <light|dark>",
	Short: "Persist the given theme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, err := buildwatch.ParseTheme(args[0])
		if err != nil {
			return err
		}
		return runTheme(cmd, func(ctx context.Context, ts *buildwatch.ThemeService) (buildwatch.Theme, error) {
			return theme, ts.Set(ctx, theme)
		})
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeShowCmd, themeToggleCmd, themeSetCmd)
	addConfigFlag(themeShowCmd)
	addConfigFlag(themeToggleCmd)
	addConfigFlag(themeSetCmd)
}

// runTheme opens the configured store, applies action and prints the
// resulting theme.
func runTheme(cmd *cobra.Command, action func(context.Context, *buildwatch.ThemeService) (buildwatch.Theme, error)) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	theme, closeTheme, err := openTheme(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeTheme() }()

	current, err := action(ctx, theme)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), current)
	return nil
}
