package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpalmerr/buildwatch"
	"github.com/spf13/cobra"
)

// pollCmd performs one status poll and prints the reconciled bindings.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the build status once",
	Long: `Fetch the configured build's status once, reconcile it onto the
configured bindings and print the result.

Exit codes:
  0 - Status fetched (or no build id on the page)
  1 - The request failed or the response was malformed

Example:
  buildwatch poll -c config.yaml`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	addConfigFlag(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
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

	w, err := newWatcher(cfg, theme, logger, buildwatch.WithHeadless())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rec, err := w.Poll(ctx)
	if errors.Is(err, buildwatch.ErrMissingBuildID) {
		fmt.Fprintln(out, "No build id on page, nothing to poll")
		return nil
	}
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	id, _ := w.ResolveBuildID()
	fmt.Fprintf(out, "Build %s: %s\n", id, rec.Status)
	for _, b := range w.Bindings() {
		fmt.Fprintf(out, "  %-20s %s", b.ID, b.Status.ClassName())
		if b.Title != "" {
			fmt.Fprintf(out, "  (%s)", b.Title)
		}
		fmt.Fprintln(out)
	}
	return nil
}
