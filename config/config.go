// Package config provides YAML configuration parsing for buildwatch.
//
// This package enables running buildwatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Oreon Build
//	port: 8080
//	base_url: https://copr.example.com
//	page: /coprs/alice/demo/build/1234/
//	poll_interval: 10s
//	overlap: cancel
//
//	headers:
//	  Cookie: session=${COPR_SESSION}
//
//	bindings:
//	  - id: build-header
//	    status: pending
//
//	theme:
//	  store: file
//	  path: ~/.config/buildwatch/prefs.yaml
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jpalmerr/buildwatch/internal/poller"
	"gopkg.in/yaml.v3"
)

const (
	// minPollInterval keeps a misconfigured file from hammering the build
	// system's API.
	minPollInterval = 1 * time.Second

	defaultPort         = 8080
	defaultPollInterval = 10 * time.Second
)

// Theme store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the root configuration structure for buildwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Build Status" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// BaseURL is the root of the build system. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Page is the URL path the build id is extracted from.
	// Supports environment variable substitution.
	Page string `yaml:"page"`

	// BuildID pins the build id and wins over Page.
	BuildID string `yaml:"build_id"`

	// PollInterval is the time between status polls. Defaults to 10s.
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout is the per-request timeout. Defaults to the SDK default.
	Timeout Duration `yaml:"timeout"`

	// PollOnStart polls immediately instead of after one interval.
	PollOnStart bool `yaml:"poll_on_start"`

	// Overlap is the overlap policy: cancel, skip or allow. Defaults to
	// cancel.
	Overlap string `yaml:"overlap"`

	// StatusField is the dot-notation path of the status label.
	StatusField string `yaml:"status_field"`

	// Headers are sent with every status request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Bindings are the elements bound to build-status display. Empty means
	// one element with id "build-status".
	Bindings []BindingConfig `yaml:"bindings"`

	// Theme configures where the theme preference is stored.
	Theme ThemeConfig `yaml:"theme"`
}

// BindingConfig defines one bound element.
type BindingConfig struct {
	// ID is the element id. Required and unique.
	ID string `yaml:"id"`

	// Status is the label rendered before the first poll.
	Status string `yaml:"status"`
}

// ThemeConfig selects the theme preference store.
type ThemeConfig struct {
	// Store is memory, file or redis. Defaults to memory.
	Store string `yaml:"store"`

	// Path is the YAML file used by the file store. A leading "~/" is
	// expanded to the user's home directory.
	Path string `yaml:"path"`

	// RedisAddr is the host:port used by the redis store.
	// Supports environment variable substitution.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates against redis.
	// Supports environment variable substitution.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the redis database.
	RedisDB int `yaml:"redis_db"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in base_url, page, header values and
// the redis settings. Defaults are applied for Port (8080), PollInterval
// (10s) and the theme store (memory).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
	if cfg.Theme.Store == "" {
		cfg.Theme.Store = StoreMemory
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Timeout != 0 && c.Timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s if specified, got %s", c.Timeout.Duration())
	}

	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	expanded, err := expandEnvVars(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	c.BaseURL = expanded

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("base_url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.Page, err = expandEnvVars(c.Page); err != nil {
		return fmt.Errorf("page: %w", err)
	}

	if strings.TrimSpace(c.BuildID) != c.BuildID {
		return fmt.Errorf("build_id must not contain surrounding whitespace, got %q", c.BuildID)
	}

	policy, err := poller.ParseOverlapPolicy(c.Overlap)
	if err != nil {
		return fmt.Errorf("overlap: %w", err)
	}
	c.Overlap = string(policy)

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	seen := make(map[string]struct{}, len(c.Bindings))
	for i, b := range c.Bindings {
		if b.ID == "" {
			return fmt.Errorf("bindings[%d]: id is required", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("bindings[%d] (%s): duplicate id", i, b.ID)
		}
		seen[b.ID] = struct{}{}
		if strings.ContainsAny(b.Status, " \t\r\n") {
			return fmt.Errorf("bindings[%d] (%s): status must be a single word, got %q", i, b.ID, b.Status)
		}
	}

	return c.Theme.expandAndValidate()
}

func (t *ThemeConfig) expandAndValidate() error {
	var err error
	switch t.Store {
	case StoreMemory:
	case StoreFile:
		if t.Path == "" {
			return errors.New("theme: path is required for the file store")
		}
	case StoreRedis:
		if t.RedisAddr, err = expandEnvVars(t.RedisAddr); err != nil {
			return fmt.Errorf("theme: redis_addr: %w", err)
		}
		if t.RedisAddr == "" {
			return errors.New("theme: redis_addr is required for the redis store")
		}
		if t.RedisPassword, err = expandEnvVars(t.RedisPassword); err != nil {
			return fmt.Errorf("theme: redis_password: %w", err)
		}
		if t.RedisDB < 0 {
			return fmt.Errorf("theme: redis_db cannot be negative, got %d", t.RedisDB)
		}
	default:
		return fmt.Errorf("theme: store must be memory, file, or redis, got %q", t.Store)
	}
	return nil
}
