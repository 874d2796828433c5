// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clawdis/webchat/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "webchat"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. WEBCHAT_PORT or
	// WEBCHAT_UI_VERBOSE.
	EnvPrefix = "WEBCHAT"
)

//go:embed config_schema.cue
var configSchema string

// envKeyReplacer maps viper keys onto environment variable names. The
// "webchat." section is flattened so webchat.port reads WEBCHAT_PORT.
var envKeyReplacer = strings.NewReplacer(EnvPrefix+"_WEBCHAT.", EnvPrefix+"_", ".", "_")

// ConfigDir returns the webchat configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the config file that Load reads and Save writes for opts.
func FilePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// newViper returns a viper instance carrying every default and the
// environment binding. Every key must have a default for AutomaticEnv to
// apply during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("webchat.enabled", defaults.Webchat.Enabled)
	v.SetDefault("webchat.root", defaults.Webchat.Root)
	v.SetDefault("webchat.port", defaults.Webchat.Port)
	v.SetDefault("webchat.startup_timeout", defaults.Webchat.StartupTimeout)
	v.SetDefault("webchat.shutdown_timeout", defaults.Webchat.ShutdownTimeout)
	v.SetDefault("connection_mode", string(defaults.ConnectionMode))
	v.SetDefault("paused", defaults.Paused)
	v.SetDefault("workspace", defaults.Workspace)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	return v
}

// loadWithOptions performs option-driven config loading. A missing file is
// not an error: defaults (plus environment overrides) apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := FilePath(opts)
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolvedPath = path
	case opts.ConfigFilePath != "":
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'webchat config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", loadError(path, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check " + EnvPrefix + "_* environment overrides").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		Wrap(err).
		BuildError()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration for opts unless a file
// already exists (or force is set). It returns the path and whether it wrote.
func CreateDefaultConfig(opts LoadOptions, force bool) (string, bool, error) {
	path, err := FilePath(opts)
	if err != nil {
		return "", false, err
	}
	if !force && fileExists(path) {
		return path, false, nil
	}
	if err := Save(DefaultConfig(), opts); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Save writes cfg as CUE to the config file for opts.
func Save(cfg *Config, opts LoadOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := FilePath(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Keys lists every settable key in file order.
func Keys() []string {
	return []string{
		"webchat.enabled",
		"webchat.root",
		"webchat.port",
		"webchat.startup_timeout",
		"webchat.shutdown_timeout",
		"connection_mode",
		"paused",
		"workspace",
		"ui.verbose",
		"ui.color_scheme",
	}
}

// Set parses value for key and stores it, then validates the result.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "webchat.enabled":
		c.Webchat.Enabled, err = strconv.ParseBool(value)
	case "webchat.root":
		c.Webchat.Root = value
	case "webchat.port":
		c.Webchat.Port, err = strconv.Atoi(value)
	case "webchat.startup_timeout":
		c.Webchat.StartupTimeout, err = time.ParseDuration(value)
	case "webchat.shutdown_timeout":
		c.Webchat.ShutdownTimeout, err = time.ParseDuration(value)
	case "connection_mode":
		c.ConnectionMode = ConnectionMode(value)
	case "paused":
		c.Paused, err = strconv.ParseBool(value)
	case "workspace":
		c.Workspace = value
	case "ui.verbose":
		c.UI.Verbose, err = strconv.ParseBool(value)
	case "ui.color_scheme":
		c.UI.ColorScheme = ColorScheme(value)
	default:
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return c.Validate()
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Webchat configuration file.\n")
	sb.WriteString("// Environment variables prefixed with " + EnvPrefix + "_ override these values.\n\n")

	sb.WriteString("webchat: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Webchat.Enabled)
	if cfg.Webchat.Root != "" {
		fmt.Fprintf(&sb, "\troot: %q\n", cfg.Webchat.Root)
	}
	fmt.Fprintf(&sb, "\tport: %d\n", cfg.Webchat.Port)
	fmt.Fprintf(&sb, "\tstartup_timeout: %q\n", cfg.Webchat.StartupTimeout.String())
	fmt.Fprintf(&sb, "\tshutdown_timeout: %q\n", cfg.Webchat.ShutdownTimeout.String())
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "connection_mode: %q\n", cfg.ConnectionMode)
	fmt.Fprintf(&sb, "paused: %v\n", cfg.Paused)
	if cfg.Workspace != "" {
		fmt.Fprintf(&sb, "workspace: %q\n", cfg.Workspace)
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}
