package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jpalmerr/buildwatch"
	"github.com/jpalmerr/buildwatch/internal/prefs"
)

// redisKeyPrefix namespaces preference keys in a shared Redis.
const redisKeyPrefix = "buildwatch:"

// BuildOptions converts parsed configuration into SDK options.
//
// The theme store is not included; build it with [BuildThemeStore] and pass
// the resulting service with buildwatch.WithThemeService.
func BuildOptions(cfg *Config) ([]buildwatch.Option, error) {
	opts := []buildwatch.Option{
		buildwatch.WithBaseURL(cfg.BaseURL),
		buildwatch.WithPort(cfg.Port),
		buildwatch.WithPollingInterval(cfg.PollInterval.Duration()),
		buildwatch.WithPollOnStart(cfg.PollOnStart),
	}

	if cfg.Title != "" {
		opts = append(opts, buildwatch.WithTitle(cfg.Title))
	}

	if cfg.Page != "" {
		opts = append(opts, buildwatch.WithPagePath(cfg.Page))
	}

	if cfg.BuildID != "" {
		opts = append(opts, buildwatch.WithBuildID(buildwatch.BuildID(cfg.BuildID)))
	}

	if cfg.Timeout != 0 {
		opts = append(opts, buildwatch.WithTimeout(cfg.Timeout.Duration()))
	}

	opts = append(opts, buildwatch.WithOverlapPolicy(buildwatch.OverlapPolicy(cfg.Overlap)))

	if cfg.StatusField != "" {
		opts = append(opts, buildwatch.WithStatusField(cfg.StatusField))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, buildwatch.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	for i, b := range cfg.Bindings {
		status := buildwatch.Status(b.Status)
		if status != "" {
			if err := status.Validate(); err != nil {
				return nil, fmt.Errorf("bindings[%d] (%s): %w", i, b.ID, err)
			}
		}
		opts = append(opts, buildwatch.WithBinding(b.ID, status))
	}

	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// BuildThemeStore opens the preference store named by the theme section.
//
// The returned close function releases the store's connection, if any, and
// is never nil.
func BuildThemeStore(ctx context.Context, cfg ThemeConfig) (buildwatch.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case "", StoreMemory:
		return prefs.NewMemoryStore(), noop, nil

	case StoreFile:
		path, err := expandHome(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("theme: %w", err)
		}
		store, err := prefs.NewFileStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("theme: %w", err)
		}
		return store, noop, nil

	case StoreRedis:
		store, err := prefs.NewRedisStore(ctx, prefs.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   redisKeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("theme: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("theme: unknown store %q", cfg.Store)
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
