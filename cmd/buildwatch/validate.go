package main

import (
	"fmt"

	"github.com/jpalmerr/buildwatch/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a buildwatch configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  buildwatch validate -c config.yaml
  buildwatch validate --config /etc/buildwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlag(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	target := cfg.Page
	if cfg.BuildID != "" {
		target = "build " + cfg.BuildID
	}
	if target == "" {
		target = "(none, polling is a no-op)"
	}

	bindings := len(cfg.Bindings)
	if bindings == 0 {
		bindings = 1
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Base URL:      %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  Target:        %s\n", target)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Overlap:       %s\n", cfg.Overlap)
	fmt.Fprintf(out, "  Bindings:      %d\n", bindings)
	fmt.Fprintf(out, "  Theme store:   %s\n", cfg.Theme.Store)

	return nil
}
