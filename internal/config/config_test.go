// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/clawdis/webchat/internal/issue"
	"github.com/clawdis/webchat/internal/testutil"
	"github.com/clawdis/webchat/pkg/types"
)

func writeConfig(t *testing.T, content string) LoadOptions {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), []byte(content))
	return LoadOptions{ConfigDirPath: dir}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if !cfg.Webchat.Enabled {
		t.Error("expected webchat to be enabled by default")
	}
	if cfg.Webchat.Port != 0 {
		t.Errorf("expected ephemeral port by default, got %d", cfg.Webchat.Port)
	}
	if cfg.Webchat.StartupTimeout != 5*time.Second {
		t.Errorf("expected 5s startup timeout, got %s", cfg.Webchat.StartupTimeout)
	}
	if cfg.ConnectionMode != ConnectionModeLocal {
		t.Errorf("expected local connection mode, got %s", cfg.ConnectionMode)
	}
	if cfg.Paused {
		t.Error("expected paused to be false by default")
	}
	if cfg.Workspace != DefaultWorkspace {
		t.Errorf("expected workspace %q, got %q", DefaultWorkspace, cfg.Workspace)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("expected auto color scheme, got %s", cfg.UI.ColorScheme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	t.Cleanup(testutil.MustSetenv(t, "XDG_CONFIG_HOME", "/tmp/test-xdg-config"))

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

func TestConfigDirOverride(t *testing.T) {
	SetConfigDirOverride("/dir/override")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if dir != "/dir/override" {
		t.Errorf("ConfigDir() = %s, want /dir/override", dir)
	}

	path, err := FilePath(LoadOptions{})
	if err != nil {
		t.Fatalf("FilePath() returned error: %v", err)
	}
	if want := filepath.Join("/dir/override", "config.cue"); path != want {
		t.Errorf("FilePath() = %s, want %s", path, want)
	}

	Reset()
	if configDirOverride != "" {
		t.Error("configDirOverride should be empty after Reset")
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, source, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if source != "" {
		t.Errorf("source = %q, want empty when no file exists", source)
	}
	if cfg.Webchat.StartupTimeout != 5*time.Second || cfg.ConnectionMode != ConnectionModeLocal {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	opts := writeConfig(t, `
webchat: {
	root: "/srv/webchat"
	port: 18789
	startup_timeout: "750ms"
}
connection_mode: "remote"
paused: true
ui: color_scheme: "dark"
`)

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Webchat.Root != "/srv/webchat" {
		t.Errorf("Root = %q", cfg.Webchat.Root)
	}
	if cfg.Webchat.Port != 18789 {
		t.Errorf("Port = %d", cfg.Webchat.Port)
	}
	if cfg.Webchat.StartupTimeout != 750*time.Millisecond {
		t.Errorf("StartupTimeout = %s", cfg.Webchat.StartupTimeout)
	}
	if cfg.Webchat.ShutdownTimeout != 2*time.Second {
		t.Errorf("ShutdownTimeout = %s, want default 2s", cfg.Webchat.ShutdownTimeout)
	}
	if !cfg.Webchat.Enabled {
		t.Error("Enabled should keep its default")
	}
	if cfg.ConnectionMode != ConnectionModeRemote || !cfg.Paused || cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"port out of range", `webchat: port: 70000`, "webchat.port"},
		{"negative port", `webchat: port: -1`, "webchat.port"},
		{"bad mode", `connection_mode: "cloud"`, "connection_mode"},
		{"bad duration", `webchat: startup_timeout: "soon"`, "webchat.startup_timeout"},
		{"unknown field", `webchat: listen: "0.0.0.0"`, "webchat.listen"},
		{"wrong type", `paused: "yes"`, "paused"},
		{"syntax error", `webchat: {`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewProvider().Load(context.Background(), writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error type = %T, want *issue.ActionableError", err)
			}
			if ae.IssueId != issue.ConfigLoadFailedId {
				t.Errorf("IssueId = %d, want ConfigLoadFailedId", ae.IssueId)
			}
			if tt.field != "" && !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should mention %q: %v", tt.field, err)
			}
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_PORT", "18790"))
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_ROOT", "/from/env"))
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_PAUSED", "true"))
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_UI_VERBOSE", "true"))
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_SHUTDOWN_TIMEOUT", "3s"))

	opts := writeConfig(t, `webchat: port: 1234`)
	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Webchat.Port != 18790 {
		t.Errorf("Port = %d, want env override 18790", cfg.Webchat.Port)
	}
	if cfg.Webchat.Root != "/from/env" {
		t.Errorf("Root = %q", cfg.Webchat.Root)
	}
	if !cfg.Paused || !cfg.UI.Verbose {
		t.Errorf("expected paused and verbose from env, got %+v", cfg)
	}
	if cfg.Webchat.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.Webchat.ShutdownTimeout)
	}
}

func TestLoad_EnvValidation(t *testing.T) {
	t.Cleanup(testutil.MustSetenv(t, "WEBCHAT_CONNECTION_MODE", "cloud"))

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConnectionMode) {
		t.Errorf("expected ErrInvalidConnectionMode, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	opts := LoadOptions{ConfigDirPath: filepath.Join(t.TempDir(), "nested")}
	cfg := DefaultConfig()
	cfg.Webchat.Root = `/srv/web "chat"`
	cfg.Webchat.Port = 8080
	cfg.Webchat.StartupTimeout = 1500 * time.Millisecond
	cfg.Paused = true
	cfg.UI.ColorScheme = ColorSchemeLight

	if err := Save(cfg, opts); err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}

	loaded, source, err := LoadWithSource(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if want, _ := FilePath(opts); source != want {
		t.Errorf("source = %q, want %q", source, want)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Webchat.Port = 70000
	err := Save(cfg, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, types.ErrInvalidListenPort) {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	opts := LoadOptions{ConfigDirPath: t.TempDir()}

	path, wrote, err := CreateDefaultConfig(opts, false)
	if err != nil || !wrote {
		t.Fatalf("first CreateDefaultConfig() = (%q, %v, %v)", path, wrote, err)
	}

	if err := os.WriteFile(path, []byte("paused: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, wrote, err := CreateDefaultConfig(opts, false); err != nil || wrote {
		t.Errorf("second CreateDefaultConfig() wrote=%v err=%v, want no-op", wrote, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "paused: true\n" {
		t.Error("existing config must not be overwritten without force")
	}

	if _, wrote, err := CreateDefaultConfig(opts, true); err != nil || !wrote {
		t.Errorf("forced CreateDefaultConfig() wrote=%v err=%v", wrote, err)
	}
}

func TestConfig_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		value   string
		wantErr error
		check   func(*Config) bool
	}{
		{"webchat.port", "8080", nil, func(c *Config) bool { return c.Webchat.Port == 8080 }},
		{"webchat.root", "/srv/ui", nil, func(c *Config) bool { return c.Webchat.Root == "/srv/ui" }},
		{"webchat.enabled", "false", nil, func(c *Config) bool { return !c.Webchat.Enabled }},
		{"webchat.startup_timeout", "10s", nil, func(c *Config) bool { return c.Webchat.StartupTimeout == 10*time.Second }},
		{"paused", "true", nil, func(c *Config) bool { return c.Paused }},
		{"connection_mode", "remote", nil, func(c *Config) bool { return c.ConnectionMode == ConnectionModeRemote }},
		{"ui.color_scheme", "dark", nil, func(c *Config) bool { return c.UI.ColorScheme == ColorSchemeDark }},
		{"webchat.port", "99999", ErrInvalidConfig, nil},
		{"webchat.port", "abc", nil, nil},
		{"connection_mode", "cloud", ErrInvalidConnectionMode, nil},
		{"ui.color_scheme", "neon", ErrInvalidColorScheme, nil},
		{"nope", "x", ErrUnknownKey, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if tt.check != nil {
				if err != nil {
					t.Fatalf("Set() returned error: %v", err)
				}
				if !tt.check(cfg) {
					t.Errorf("Set(%q, %q) did not apply: %+v", tt.key, tt.value, cfg)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeysCoverGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Webchat.Root = "/srv/ui"
	out := GenerateCUE(cfg)
	for _, key := range Keys() {
		leaf := key[strings.LastIndex(key, ".")+1:]
		if !strings.Contains(out, leaf+":") {
			t.Errorf("GenerateCUE() missing %q:\n%s", key, out)
		}
	}
}
