package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Backend.GraphQLURL = "https://x.hasura.app/v1/graphql"
	cfg.Composer.SendKey = SendKeyAltEnter
	cfg.UI.Theme = ThemeLight
	cfg.Auth.RefreshMargin = Dur(2 * time.Minute)

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Backend.GraphQLURL != cfg.Backend.GraphQLURL {
		t.Errorf("GraphQLURL: got %q, want %q", loaded.Backend.GraphQLURL, cfg.Backend.GraphQLURL)
	}
	if loaded.Composer.SendKey != SendKeyAltEnter {
		t.Errorf("SendKey: got %q, want %q", loaded.Composer.SendKey, SendKeyAltEnter)
	}
	if loaded.UI.Theme != ThemeLight {
		t.Errorf("Theme: got %q, want %q", loaded.UI.Theme, ThemeLight)
	}
	if loaded.Auth.RefreshMargin.Duration != 2*time.Minute {
		t.Errorf("RefreshMargin: got %v, want 2m", loaded.Auth.RefreshMargin.Duration)
	}
}

func TestDurationsWrittenAsStrings(t *testing.T) {
	tmpDir := t.TempDir()
	if err := WriteConfig(tmpDir, DefaultConfig()); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, configFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "signup_revert_delay: 5s") {
		t.Errorf("expected signup_revert_delay as a duration string, got:\n%s", data)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
backend:
  graphql_url: "https://x.hasura.app/v1/graphql"
ui:
  toast_error: 8s
`
	if err := os.WriteFile(filepath.Join(tmpDir, configFile), []byte(partial), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.UI.ToastError.Duration != 8*time.Second {
		t.Errorf("ToastError: got %v, want 8s", cfg.UI.ToastError.Duration)
	}
	if cfg.UI.ToastSuccess.Duration != 3*time.Second {
		t.Errorf("ToastSuccess: got %v, want default 3s", cfg.UI.ToastSuccess.Duration)
	}
	if cfg.Composer.MaxChars != 4000 {
		t.Errorf("MaxChars: got %d, want default 4000", cfg.Composer.MaxChars)
	}
	if cfg.Backend.MaxReconnects != 5 {
		t.Errorf("MaxReconnects: got %d, want default 5", cfg.Backend.MaxReconnects)
	}
}

func TestBadDurationRejected(t *testing.T) {
	tmpDir := t.TempDir()
	bad := "auth:\n  refresh_margin: soon\n"
	if err := os.WriteFile(filepath.Join(tmpDir, configFile), []byte(bad), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ReadConfig(tmpDir); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLegacyGraphQLURL: "https://legacy/v1/graphql",
		EnvAuthURL:          "https://auth.example/v1",
		EnvLogLevel:         "debug",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Backend.GraphQLURL != "https://legacy/v1/graphql" {
		t.Errorf("GraphQLURL: got %q, want legacy fallback", cfg.Backend.GraphQLURL)
	}
	if cfg.Auth.URL != "https://auth.example/v1" {
		t.Errorf("Auth.URL: got %q", cfg.Auth.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q, want debug", cfg.Log.Level)
	}

	env[EnvGraphQLURL] = "https://primary/v1/graphql"
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Backend.GraphQLURL != "https://primary/v1/graphql" {
		t.Errorf("GraphQLURL: got %q, want primary to win over legacy", cfg.Backend.GraphQLURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}

	cfg.Backend.GraphQLURL = "https://x.hasura.app/v1/graphql"
	cfg.Auth.URL = "https://x.auth/v1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: unexpected error %v", err)
	}

	cfg.Composer.SendKey = "ctrl+enter"
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an unknown send key")
	}
}

func TestSetThemeKeepsFileSettings(t *testing.T) {
	tmpDir := t.TempDir()

	onDisk := DefaultConfig()
	onDisk.Backend.GraphQLURL = "https://file.hasura.app/v1/graphql"
	if err := WriteConfig(tmpDir, onDisk); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	// Loaded with an environment override that must not reach the file.
	inMemory, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	inMemory.ApplyEnv(func(key string) string {
		if key == EnvGraphQLURL {
			return "https://env.hasura.app/v1/graphql"
		}
		return ""
	})

	if err := SetTheme(tmpDir, ThemeLight); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if loaded.UI.Theme != ThemeLight {
		t.Errorf("Theme: got %q, want %q", loaded.UI.Theme, ThemeLight)
	}
	if loaded.Backend.GraphQLURL != onDisk.Backend.GraphQLURL {
		t.Errorf("GraphQLURL: got %q, want %q", loaded.Backend.GraphQLURL, onDisk.Backend.GraphQLURL)
	}
}

func TestSetThemeWithoutFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := SetTheme(tmpDir, ThemeLight); err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if loaded.UI.Theme != ThemeLight || loaded.Backend.GraphQLURL != "" {
		t.Errorf("got theme %q url %q, want light and no url", loaded.UI.Theme, loaded.Backend.GraphQLURL)
	}
}
