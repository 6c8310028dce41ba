// Package buildwatch mirrors a build system's live status display.
//
// A [Watcher] polls GET {base}/api/builds/{id}/status on a fixed interval,
// decodes the {"status": "<label>"} body and reconciles it onto every element
// bound to build-status display. An element only transitions when its stored
// label differs from the polled one, so a build that keeps reporting
// "running" causes exactly one visible transition.
//
// # Quick Start
//
//	w, _ := buildwatch.New(
//	    buildwatch.WithBaseURL("https://copr.example.com"),
//	    buildwatch.WithPagePath("/coprs/alice/demo/build/1234/"),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until context is cancelled
//
// # Build IDs
//
// The build id is resolved on every tick, either pinned with [WithBuildID]
// or extracted from the page path by [BuildIDFromPath]. When neither yields
// an id the tick issues no request at all.
//
// # Reconciliation
//
// [Plan] is the pure decision step: equal labels are a no-op, anything else
// runs hide, strip, apply, store and reveal. Each element is mutated under
// its own lock, so a concurrent reader always sees exactly one build-<label>
// class next to the [BindingClass] marker.
//
// # Failures
//
// Poll failures wrap [ErrNetworkFailure] or [ErrMalformedResponse] and are
// logged, never fatal. The bound elements keep their last known status and
// the next tick is the only retry.
//
// # Overlapping requests
//
// By default a tick cancels a still-running request and replaces it, and a
// response older than the last applied one is discarded. [WithOverlapPolicy]
// selects [OverlapSkip] or [OverlapAllow] instead.
//
// # Theme
//
// [ThemeService] owns the light/dark preference stored under
// [ThemeStorageKey] in a [KeyValueStore]. The dashboard toggles it through
// POST /api/theme/toggle.
package buildwatch
