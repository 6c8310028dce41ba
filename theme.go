package buildwatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ThemeStorageKey is the fixed key the theme preference is stored under.
const ThemeStorageKey = "oreon-theme"

// Theme is the dashboard color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// darkModeClass is added to the page body while the dark theme is active.
const darkModeClass = "dark-mode"

// ParseTheme converts a stored value into a [Theme].
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unknown theme %q (expected light or dark)", s)
	}
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// BodyClass returns the class the page body carries for t, or "".
func (t Theme) BodyClass() string {
	if t == ThemeDark {
		return darkModeClass
	}
	return ""
}

// KeyValueStore is a durable string store. Get reports a missing key with
// ok=false and a nil error.
//
// The stores in internal/prefs (memory, YAML file, Redis) implement it.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ThemeService owns the theme preference.
//
// The stored value is read once by [NewThemeService] and written on every
// change. The in-memory theme only changes after the write succeeded, so the
// displayed and persisted theme never disagree.
type ThemeService struct {
	store  KeyValueStore
	logger *slog.Logger

	mu      sync.RWMutex
	current Theme
}

// NewThemeService reads the persisted theme from store. A missing,
// unreadable or unknown value falls back to [ThemeLight] and is logged; it
// never fails construction.
func NewThemeService(ctx context.Context, store KeyValueStore, logger *slog.Logger) *ThemeService {
	if logger == nil {
		logger = slog.Default()
	}
	ts := &ThemeService{store: store, logger: logger, current: ThemeLight}

	raw, ok, err := store.Get(ctx, ThemeStorageKey)
	switch {
	case err != nil:
		logger.Warn("failed to read theme preference, using light", "error", err)
	case !ok:
		// first run
	default:
		theme, perr := ParseTheme(raw)
		if perr != nil {
			logger.Warn("ignoring stored theme preference", "value", raw, "error", perr)
			break
		}
		ts.current = theme
	}
	return ts
}

// Current returns the active theme.
func (s *ThemeService) Current() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set persists and activates t.
func (s *ThemeService) Set(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, ThemeStorageKey, string(t)); err != nil {
		return fmt.Errorf("failed to persist theme: %w", err)
	}
	s.current = t
	return nil
}

// Toggle switches between light and dark and returns the new theme.
func (s *ThemeService) Toggle(ctx context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Toggled()
	if err := s.store.Set(ctx, ThemeStorageKey, string(next)); err != nil {
		return s.current, fmt.Errorf("failed to persist theme: %w", err)
	}
	s.current = next
	s.logger.Info("theme changed", "theme", string(next))
	return next, nil
}

// themeController adapts a ThemeService to the server's string-based view.
type themeController struct {
	svc *ThemeService
}

func (c themeController) CurrentTheme() string {
	return string(c.svc.Current())
}

func (c themeController) BodyClass() string {
	return c.svc.Current().BodyClass()
}

func (c themeController) ToggleTheme(ctx context.Context) (string, error) {
	t, err := c.svc.Toggle(ctx)
	return string(t), err
}
