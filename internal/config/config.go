// Package config handles reading and writing ~/.threadline/config.yaml and
// applying environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	Version  int            `yaml:"version"`
	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Composer ComposerConfig `yaml:"composer"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
}

// BackendConfig locates the GraphQL data backend.
type BackendConfig struct {
	GraphQLURL     string   `yaml:"graphql_url"`
	WSURL          string   `yaml:"ws_url"` // derived from graphql_url when empty
	RequestTimeout Duration `yaml:"request_timeout"`
	MaxReconnects  int      `yaml:"max_reconnects"`
}

// AuthConfig locates the identity provider.
type AuthConfig struct {
	URL               string   `yaml:"url"`
	RefreshMargin     Duration `yaml:"refresh_margin"`
	SignUpRevertDelay Duration `yaml:"signup_revert_delay"`
}

// ComposerConfig controls the message composer.
type ComposerConfig struct {
	SendKey  string `yaml:"send_key"` // "enter" | "alt+enter"
	MaxChars int    `yaml:"max_chars"`
}

// UIConfig holds display preferences.
type UIConfig struct {
	Theme        string   `yaml:"theme"` // "dark" | "light"
	ToastDefault Duration `yaml:"toast_default"`
	ToastSuccess Duration `yaml:"toast_success"`
	ToastError   Duration `yaml:"toast_error"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Send key values.
const (
	SendKeyEnter    = "enter"
	SendKeyAltEnter = "alt+enter"
)

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Environment variables that override the file.
const (
	EnvGraphQLURL   = "THREADLINE_GRAPHQL_URL"
	EnvGraphQLWSURL = "THREADLINE_GRAPHQL_WS_URL"
	EnvAuthURL      = "THREADLINE_AUTH_URL"
	EnvLogLevel     = "THREADLINE_LOG_LEVEL"

	// EnvLegacyGraphQLURL is honoured when EnvGraphQLURL is unset.
	EnvLegacyGraphQLURL = "VITE_HASURA_ENDPOINT"
)

// ErrMissingEndpoint is returned by Validate when an endpoint is unset.
var ErrMissingEndpoint = errors.New("endpoint not configured")

const dirName = ".threadline"
const configFile = "config.yaml"

// Duration is a time.Duration written as a string ("5s") in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Dur is shorthand for building a Duration.
func Dur(d time.Duration) Duration {
	return Duration{Duration: d}
}

// DefaultDir returns ~/.threadline, falling back to ./.threadline when the
// home directory cannot be resolved.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// ReadConfig reads config.yaml from dir. Fields missing from the file keep
// their defaults.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to config.yaml in dir.
// Creates dir if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetTheme rewrites ui.theme in dir's config.yaml, leaving every other
// setting as the file has it. Environment overrides are never written back.
func SetTheme(dir, theme string) error {
	cfg, err := ReadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return err
	}
	cfg.UI.Theme = theme
	return WriteConfig(dir, cfg)
}

// Load reads config.yaml from dir, or the defaults when the file does not
// exist yet, then applies .env and process environment overrides.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides endpoints and log level from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvGraphQLURL); v != "" {
		c.Backend.GraphQLURL = v
	} else if v := getenv(EnvLegacyGraphQLURL); v != "" {
		c.Backend.GraphQLURL = v
	}
	if v := getenv(EnvGraphQLWSURL); v != "" {
		c.Backend.WSURL = v
	}
	if v := getenv(EnvAuthURL); v != "" {
		c.Auth.URL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate reports missing endpoints and out-of-range settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.GraphQLURL == "" {
		errs = append(errs, fmt.Errorf("backend.graphql_url (or %s): %w", EnvGraphQLURL, ErrMissingEndpoint))
	}
	if c.Auth.URL == "" {
		errs = append(errs, fmt.Errorf("auth.url (or %s): %w", EnvAuthURL, ErrMissingEndpoint))
	}
	switch c.Composer.SendKey {
	case SendKeyEnter, SendKeyAltEnter:
	default:
		errs = append(errs, fmt.Errorf("composer.send_key must be %q or %q, got %q", SendKeyEnter, SendKeyAltEnter, c.Composer.SendKey))
	}
	switch c.UI.Theme {
	case ThemeDark, ThemeLight:
	default:
		errs = append(errs, fmt.Errorf("ui.theme must be %q or %q, got %q", ThemeDark, ThemeLight, c.UI.Theme))
	}
	if c.Composer.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("composer.max_chars must be positive, got %d", c.Composer.MaxChars))
	}
	return errors.Join(errs...)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			RequestTimeout: Dur(30 * time.Second),
			MaxReconnects:  5,
		},
		Auth: AuthConfig{
			RefreshMargin:     Dur(60 * time.Second),
			SignUpRevertDelay: Dur(5 * time.Second),
		},
		Composer: ComposerConfig{
			SendKey:  SendKeyEnter,
			MaxChars: 4000,
		},
		UI: UIConfig{
			Theme:        ThemeDark,
			ToastDefault: Dur(4 * time.Second),
			ToastSuccess: Dur(3 * time.Second),
			ToastError:   Dur(5 * time.Second),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxAgeDays: 14,
		},
	}
}
