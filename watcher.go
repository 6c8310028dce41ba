package buildwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/buildwatch/dashboard"
	"github.com/jpalmerr/buildwatch/internal/dom"
	"github.com/jpalmerr/buildwatch/internal/poller"
	"github.com/jpalmerr/buildwatch/internal/prefs"
	"github.com/jpalmerr/buildwatch/internal/server"
)

const (
	defaultPollingInterval = 10 * time.Second
	defaultTimeout         = 5 * time.Second
	defaultPort            = 8080
	defaultBindingID       = "build-status"
)

// Watcher polls a build's status and mirrors it onto the bound elements.
//
// A Watcher is created with [New] and run with [Watcher.Start]:
//
//	w, err := buildwatch.New(
//	    buildwatch.WithBaseURL("https://copr.example.com"),
//	    buildwatch.WithPagePath("/coprs/alice/demo/build/1234/"),
//	)
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	w.Start(ctx) // blocks until ctx is cancelled
type Watcher struct {
	title        string
	baseURL      string
	page         PageContext
	buildID      BuildID
	pollInterval time.Duration
	timeout      time.Duration
	headers      map[string]string
	statusField  string
	port         int
	headless     bool
	logger       *slog.Logger
	callbacks    []func(Transition)

	doc       *dom.Document
	theme     *ThemeService
	scheduler *poller.Scheduler

	// reconcileMu serializes reconciliation between the polling loop and
	// direct Poll/Reconcile calls.
	reconcileMu sync.Mutex
	started     atomic.Bool
}

// New creates a [Watcher] with the given options.
//
// [WithBaseURL] is required. Defaults:
//   - Polling interval: 10 seconds
//   - Request timeout: 5 seconds
//   - Overlap policy: cancel-and-replace
//   - Port: 8080
//   - Bindings: one element with id "build-status"
//   - Theme: light, kept in process memory
func New(opts ...Option) (*Watcher, error) {
	cfg := &watcherConfig{
		pollInterval: defaultPollingInterval,
		timeout:      defaultTimeout,
		headers:      make(map[string]string),
		statusField:  DefaultStatusField,
		overlap:      OverlapCancel,
		port:         defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	doc := dom.NewDocument()
	bindings := cfg.bindings
	if len(bindings) == 0 {
		bindings = []bindingSpec{{id: defaultBindingID}}
	}
	for _, b := range bindings {
		var el *dom.Element
		if b.classes != nil {
			var err error
			if el, err = bindingElementFromClasses(b.id, b.classes); err != nil {
				return nil, err
			}
		} else {
			el = newBindingElement(b.id, b.initial)
		}
		if err := doc.Add(el); err != nil {
			return nil, err
		}
	}

	theme := cfg.theme
	if theme == nil {
		theme = NewThemeService(context.Background(), prefs.NewMemoryStore(), logger)
	}

	w := &Watcher{
		title:        cfg.title,
		baseURL:      strings.TrimRight(cfg.baseURL, "/"),
		page:         cfg.page,
		buildID:      cfg.buildID,
		pollInterval: cfg.pollInterval,
		timeout:      cfg.timeout,
		headers:      cfg.headers,
		statusField:  cfg.statusField,
		port:         cfg.port,
		headless:     cfg.headless,
		logger:       logger,
		callbacks:    cfg.transitionCallbacks,
		doc:          doc,
		theme:        theme,
	}

	w.scheduler = poller.NewScheduler(w.resolveTarget, poller.Config{
		Interval:  cfg.pollInterval,
		Policy:    poller.OverlapPolicy(cfg.overlap),
		Immediate: cfg.pollOnStart,
	}, logger)

	return w, nil
}

// Start begins polling and, unless headless, serves the dashboard.
//
// Start blocks until ctx is cancelled and returns nil on graceful shutdown.
// It returns an error if the dashboard server cannot bind its port or if
// Start was already called.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher already started")
	}

	w.logger.Info("buildwatch starting",
		"base_url", w.baseURL,
		"bindings", w.doc.Len(),
		"interval", w.pollInterval.String(),
		"overlap", string(w.scheduler.Policy()),
	)

	if ctx.Err() != nil {
		return nil
	}

	w.scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range w.scheduler.Results() {
			w.handleResult(result)
		}
	}()

	cleanup := func() {
		w.scheduler.Stop() // closes results channel
		wg.Wait()
	}

	if !w.headless {
		srv := server.NewServer(w.doc, themeController{w.theme}, w.port, dashboard.Assets, w.title, w.logger)
		if err := srv.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		w.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", w.port))
	}

	<-ctx.Done()
	cleanup()
	w.logger.Info("buildwatch stopped")
	return nil
}

// Poll fetches the status once, outside the ticking loop, and reconciles it.
//
// It returns [ErrMissingBuildID] when no build id is resolvable, and errors
// wrapping [ErrNetworkFailure] or [ErrMalformedResponse] on failure.
func (w *Watcher) Poll(ctx context.Context) (StatusRecord, error) {
	result, ok := w.scheduler.Poll(ctx)
	if !ok {
		return StatusRecord{}, ErrMissingBuildID
	}

	rec, err := w.interpret(result)
	if err != nil {
		return StatusRecord{}, err
	}
	if _, err := w.Reconcile(rec); err != nil {
		return StatusRecord{}, err
	}
	return rec, nil
}

// Reconcile applies rec to every bound element whose stored label differs
// and returns the transitions performed. Elements already showing rec's
// status are left untouched.
func (w *Watcher) Reconcile(rec StatusRecord) ([]Transition, error) {
	if err := rec.Status.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	w.reconcileMu.Lock()
	transitions := reconcile(w.doc, rec)
	w.reconcileMu.Unlock()

	for _, t := range transitions {
		w.logger.Info("build status changed",
			"element", t.ElementID,
			"from", string(t.From),
			"to", string(t.To),
		)
		for _, cb := range w.callbacks {
			invokeCallbackSafe(cb, t, w.logger)
		}
	}
	return transitions, nil
}

// ResolveBuildID returns the pinned build id, or the one found in the page
// path.
func (w *Watcher) ResolveBuildID() (BuildID, bool) {
	if w.buildID != "" {
		return w.buildID, true
	}
	if w.page == nil {
		return "", false
	}
	return BuildIDFromPath(w.page.Path())
}

// StatusURL returns the status endpoint for id.
func (w *Watcher) StatusURL(id BuildID) string {
	return w.baseURL + "/api/builds/" + url.PathEscape(string(id)) + "/status"
}

// Bindings returns snapshots of all bound elements in binding order.
func (w *Watcher) Bindings() []Binding {
	snaps := w.doc.Snapshot()
	out := make([]Binding, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, bindingFromSnapshot(s))
	}
	return out
}

// Theme returns the theme preference owner.
func (w *Watcher) Theme() *ThemeService {
	return w.theme
}

// PollingInterval returns the configured interval between ticks.
func (w *Watcher) PollingInterval() time.Duration {
	return w.pollInterval
}

// Port returns the dashboard port.
func (w *Watcher) Port() int {
	return w.port
}

// resolveTarget builds the poller target for the current tick.
func (w *Watcher) resolveTarget() (poller.Target, bool) {
	id, ok := w.ResolveBuildID()
	if !ok {
		return poller.Target{}, false
	}
	return poller.Target{
		BuildID: string(id),
		URL:     w.StatusURL(id),
		Headers: copyMap(w.headers),
		Timeout: w.timeout,
	}, true
}

// handleResult interprets and applies one polling result. Failures are
// logged and swallowed; the next tick is the only retry.
func (w *Watcher) handleResult(result poller.Result) {
	logAttrs := []any{
		"build_id", result.BuildID,
		"request_id", result.RequestID,
		"seq", result.Seq,
		"latency_ms", result.Latency.Milliseconds(),
	}

	rec, err := w.interpret(result)
	if err != nil {
		w.logger.Warn("status poll failed", append(logAttrs, "error", err.Error())...)
		return
	}

	transitions, err := w.Reconcile(rec)
	if err != nil {
		w.logger.Warn("status reconcile failed", append(logAttrs, "error", err.Error())...)
		return
	}

	w.logger.Debug("status poll completed",
		append(logAttrs, "status", string(rec.Status), "transitions", len(transitions))...,
	)
}

// interpret classifies a raw result into a StatusRecord or a taxonomy error.
func (w *Watcher) interpret(result poller.Result) (StatusRecord, error) {
	if result.Error != nil {
		return StatusRecord{}, fmt.Errorf("%w: %v", ErrNetworkFailure, result.Error)
	}
	if result.StatusCode < 200 || result.StatusCode > 299 {
		return StatusRecord{}, fmt.Errorf("%w: unexpected HTTP status %d from %s",
			ErrNetworkFailure, result.StatusCode, result.URL)
	}
	return DecodeStatusRecord(result.Body, w.statusField)
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// invokeCallbackSafe calls a transition callback with panic recovery.
func invokeCallbackSafe(cb func(Transition), t Transition, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transition callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"element", t.ElementID,
			)
		}
	}()
	cb(t)
}
