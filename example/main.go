package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/buildwatch"
)

func main() {
	// start mock build API (see mock_server.go)
	go StartMockBuildAPI(":9999")
	time.Sleep(100 * time.Millisecond)

	// the page navigates to a second build after a minute
	page := buildwatch.NewPage("/coprs/alice/demo/build/1234/")

	w, err := buildwatch.New(
		buildwatch.WithBaseURL("http://localhost:9999"),
		buildwatch.WithPage(page),
		buildwatch.WithTitle("Oreon Build Demo"),
		buildwatch.WithElement("build-header", "card", "build-pending"),
		buildwatch.WithBinding("build-sidebar", buildwatch.StatusPending),
		buildwatch.WithPollingInterval(3*time.Second),
		buildwatch.WithPollOnStart(true),
		buildwatch.WithPort(8080),
		buildwatch.WithTransitionCallback(func(t buildwatch.Transition) {
			if t.To == buildwatch.StatusFailed {
				slog.Warn("build failed", "element", t.ElementID)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  buildwatch demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Watching build 1234, switching to build 1235 after 60s")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-time.After(60 * time.Second):
			page.Navigate("/coprs/alice/demo/build/1235/")
			slog.Info("navigated", "path", page.Path())
		case <-ctx.Done():
		}
	}()

	if err := w.Start(ctx); err != nil {
		slog.Error("buildwatch error", "error", err)
		os.Exit(1)
	}
}
