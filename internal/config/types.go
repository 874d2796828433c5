// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/clawdis/webchat/pkg/types"
)

const (
	// ConnectionModeLocal runs the gateway on this machine.
	ConnectionModeLocal ConnectionMode = "local"
	// ConnectionModeRemote talks to a gateway on another host.
	ConnectionModeRemote ConnectionMode = "remote"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultWorkspace is where the agent workspace lives unless configured.
	DefaultWorkspace = "~/clawd"
)

var (
	// ErrInvalidConnectionMode is returned when a ConnectionMode value is not recognized.
	ErrInvalidConnectionMode = errors.New("invalid connection mode")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownKey is returned by Set for keys that are not part of the schema.
	ErrUnknownKey = errors.New("unknown config key")
)

type (
	// ConnectionMode selects where the gateway runs.
	ConnectionMode string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidConnectionModeError wraps ErrInvalidConnectionMode.
	InvalidConnectionModeError struct {
		Value ConnectionMode
	}

	// InvalidColorSchemeError wraps ErrInvalidColorScheme.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete webchat configuration.
	Config struct {
		// Webchat configures the embedded UI server.
		Webchat WebchatConfig `json:"webchat" mapstructure:"webchat"`
		// ConnectionMode selects a local or remote gateway.
		ConnectionMode ConnectionMode `json:"connection_mode" mapstructure:"connection_mode"`
		// Paused makes control requests other than status short-circuit.
		Paused bool `json:"paused" mapstructure:"paused"`
		// Workspace is the agent workspace directory; "~" is expanded.
		Workspace string `json:"workspace" mapstructure:"workspace"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// WebchatConfig configures the embedded UI server.
	WebchatConfig struct {
		// Enabled turns the web chat surface on.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Root is the directory holding the UI bundle.
		Root string `json:"root" mapstructure:"root"`
		// Port is the preferred loopback port; 0 picks an ephemeral one.
		Port int `json:"port" mapstructure:"port"`
		// StartupTimeout bounds server start.
		StartupTimeout time.Duration `json:"startup_timeout" mapstructure:"startup_timeout"`
		// ShutdownTimeout bounds graceful stop.
		ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme selects the terminal palette.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Webchat: WebchatConfig{
			Enabled:         true,
			Port:            0,
			StartupTimeout:  5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		ConnectionMode: ConnectionModeLocal,
		Workspace:      DefaultWorkspace,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// String returns the string representation of the ConnectionMode.
func (m ConnectionMode) String() string { return string(m) }

// Validate returns an error if the mode is not local or remote.
func (m ConnectionMode) Validate() error {
	switch m {
	case ConnectionModeLocal, ConnectionModeRemote:
		return nil
	default:
		return &InvalidConnectionModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidConnectionModeError) Error() string {
	return fmt.Sprintf("invalid connection mode %q (valid: local, remote)", e.Value)
}

// Unwrap returns ErrInvalidConnectionMode for errors.Is() compatibility.
func (e *InvalidConnectionModeError) Unwrap() error { return ErrInvalidConnectionMode }

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// Validate returns an error if the scheme is not auto, dark or light.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate checks every field, collecting all failures.
func (c *Config) Validate() error {
	var errs []error
	if err := types.ListenPort(c.Webchat.Port).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("webchat.port: %w", err))
	}
	if c.Webchat.StartupTimeout < 0 {
		errs = append(errs, fmt.Errorf("webchat.startup_timeout: must not be negative"))
	}
	if c.Webchat.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("webchat.shutdown_timeout: must not be negative"))
	}
	if err := c.ConnectionMode.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("connection_mode: %w", err))
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ui.color_scheme: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidConfig, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
