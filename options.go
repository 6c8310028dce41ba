package buildwatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jpalmerr/buildwatch/internal/poller"
)

// OverlapPolicy decides what a polling tick does while the previous status
// request is still in flight.
type OverlapPolicy string

const (
	// OverlapCancel cancels the in-flight request and replaces it. Responses
	// older than the newest applied one are discarded. This is the default.
	// A build API that answers slower than the polling interval never
	// updates the bindings under this policy; use [OverlapSkip] for it.
	OverlapCancel OverlapPolicy = "cancel"

	// OverlapSkip skips the tick while a request is in flight.
	OverlapSkip OverlapPolicy = "skip"

	// OverlapAllow lets requests overlap and applies responses in arrival
	// order, so a stale response may overwrite a newer status.
	OverlapAllow OverlapPolicy = "allow"
)

// bindingSpec describes an element to bind at construction.
type bindingSpec struct {
	id      string
	initial Status
	classes []string
}

// watcherConfig holds mutable state during Watcher construction.
type watcherConfig struct {
	title               string
	baseURL             string
	page                PageContext
	buildID             BuildID
	pollInterval        time.Duration
	timeout             time.Duration
	headers             map[string]string
	statusField         string
	overlap             OverlapPolicy
	pollOnStart         bool
	port                int
	headless            bool
	logger              *slog.Logger
	bindings            []bindingSpec
	theme               *ThemeService
	transitionCallbacks []func(Transition)
}

// Option configures a [Watcher] during construction. Options return an
// error if validation fails.
type Option func(*watcherConfig) error

// WithBaseURL sets the root of the build system, e.g.
// "https://copr.example.com". Status is fetched from
// {base}/api/builds/{id}/status. Required.
func WithBaseURL(rawURL string) Option {
	return func(cfg *watcherConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("base URL must have an http or https scheme")
		}
		if u.Host == "" {
			return errors.New("base URL must have a host")
		}
		cfg.baseURL = rawURL
		return nil
	}
}

// WithPage sets the page context the build id is resolved from on every tick.
func WithPage(p PageContext) Option {
	return func(cfg *watcherConfig) error {
		if p == nil {
			return errors.New("page context cannot be nil")
		}
		cfg.page = p
		return nil
	}
}

// WithPagePath is shorthand for WithPage(StaticPage(path)).
func WithPagePath(path string) Option {
	return WithPage(StaticPage(path))
}

// WithBuildID pins the build id. A pinned id wins over the page context.
func WithBuildID(id BuildID) Option {
	return func(cfg *watcherConfig) error {
		if id == "" {
			return errors.New("build id cannot be empty")
		}
		cfg.buildID = id
		return nil
	}
}

// WithPollingInterval sets the time between polling ticks. Defaults to 10s.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithTimeout sets the per-request timeout. Defaults to 5s, half the
// default polling interval.
func WithTimeout(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds HTTP headers to every status request, typically the
// session cookie of the dashboard user. Arguments are key-value pairs.
func WithHeaders(keyValues ...string) Option {
	return func(cfg *watcherConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithStatusField sets the dot-notation path of the status label in the
// response body. Defaults to "status".
func WithStatusField(field string) Option {
	return func(cfg *watcherConfig) error {
		if field == "" {
			return errors.New("status field cannot be empty")
		}
		cfg.statusField = field
		return nil
	}
}

// WithOverlapPolicy sets how overlapping requests are handled. Defaults to
// [OverlapCancel]; the empty policy also means [OverlapCancel].
func WithOverlapPolicy(p OverlapPolicy) Option {
	return func(cfg *watcherConfig) error {
		parsed, err := poller.ParseOverlapPolicy(string(p))
		if err != nil {
			return err
		}
		cfg.overlap = OverlapPolicy(parsed)
		return nil
	}
}

// WithPollOnStart polls once immediately on Start instead of waiting one
// full interval.
func WithPollOnStart(enabled bool) Option {
	return func(cfg *watcherConfig) error {
		cfg.pollOnStart = enabled
		return nil
	}
}

// WithPort sets the dashboard HTTP port. Defaults to 8080.
func WithPort(port int) Option {
	return func(cfg *watcherConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHeadless disables the dashboard server. Polling and reconciliation
// still run; observe them through [WithTransitionCallback] or
// [Watcher.Bindings].
func WithHeadless() Option {
	return func(cfg *watcherConfig) error {
		cfg.headless = true
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "Build Status".
func WithTitle(title string) Option {
	return func(cfg *watcherConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *watcherConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithBinding binds an element to build-status display. A non-empty
// initial label is rendered immediately. Without any binding option a single
// element with id "build-status" is bound.
func WithBinding(id string, initial Status) Option {
	return func(cfg *watcherConfig) error {
		if id == "" {
			return errors.New("binding id cannot be empty")
		}
		if initial != "" {
			if err := initial.Validate(); err != nil {
				return fmt.Errorf("binding %q: %w", id, err)
			}
		}
		cfg.bindings = append(cfg.bindings, bindingSpec{id: id, initial: initial})
		return nil
	}
}

// WithElement binds an element described by its existing classes, as it
// appears in server-rendered markup. A known status class among them, such
// as "build-pending", seeds the element's stored label. Other build-*
// classes, such as "build-row-hover", are kept and never stripped.
func WithElement(id string, classes ...string) Option {
	return func(cfg *watcherConfig) error {
		if id == "" {
			return errors.New("element id cannot be empty")
		}
		cfg.bindings = append(cfg.bindings, bindingSpec{id: id, classes: append([]string(nil), classes...)})
		return nil
	}
}

// WithThemeService sets the theme preference owner. Defaults to a service
// backed by process memory.
func WithThemeService(ts *ThemeService) Option {
	return func(cfg *watcherConfig) error {
		if ts == nil {
			return errors.New("theme service cannot be nil")
		}
		cfg.theme = ts
		return nil
	}
}

// WithTransitionCallback registers a function called after every applied
// transition, in registration order, from the reconciling goroutine.
//
// Callbacks must be non-blocking. Panics are recovered and logged. Nil
// callbacks are ignored.
func WithTransitionCallback(cb func(Transition)) Option {
	return func(cfg *watcherConfig) error {
		if cb == nil {
			return nil
		}
		cfg.transitionCallbacks = append(cfg.transitionCallbacks, cb)
		return nil
	}
}
