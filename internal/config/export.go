// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatCUE renders the config file format.
	FormatCUE Format = "cue"
	// FormatTOML renders TOML.
	FormatTOML Format = "toml"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
)

// ErrInvalidFormat is returned for unknown export formats.
var ErrInvalidFormat = errors.New("invalid export format")

type (
	// Format is an export format for `config dump`.
	Format string

	// fileView mirrors the on-disk key layout with durations as strings so
	// every format round-trips through the CUE schema.
	fileView struct {
		Webchat        webchatView `json:"webchat" yaml:"webchat" toml:"webchat"`
		ConnectionMode string      `json:"connection_mode" yaml:"connection_mode" toml:"connection_mode"`
		Paused         bool        `json:"paused" yaml:"paused" toml:"paused"`
		Workspace      string      `json:"workspace,omitempty" yaml:"workspace,omitempty" toml:"workspace,omitempty"`
		UI             uiView      `json:"ui" yaml:"ui" toml:"ui"`
	}

	webchatView struct {
		Enabled         bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
		Root            string `json:"root,omitempty" yaml:"root,omitempty" toml:"root,omitempty"`
		Port            int    `json:"port" yaml:"port" toml:"port"`
		StartupTimeout  string `json:"startup_timeout" yaml:"startup_timeout" toml:"startup_timeout"`
		ShutdownTimeout string `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	}

	uiView struct {
		Verbose     bool   `json:"verbose" yaml:"verbose" toml:"verbose"`
		ColorScheme string `json:"color_scheme" yaml:"color_scheme" toml:"color_scheme"`
	}
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{FormatCUE, FormatTOML, FormatYAML, FormatJSON}
}

// Validate returns an error wrapping ErrInvalidFormat for unknown formats.
func (f Format) Validate() error {
	switch f {
	case FormatCUE, FormatTOML, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: cue, toml, yaml, json)", ErrInvalidFormat, string(f))
	}
}

// Export renders cfg in the requested format.
func Export(cfg *Config, format Format) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	view := newFileView(cfg)
	switch format {
	case FormatTOML:
		return toml.Marshal(view)
	case FormatYAML:
		return yaml.Marshal(view)
	case FormatJSON:
		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	default:
		return []byte(GenerateCUE(cfg)), nil
	}
}

func newFileView(cfg *Config) fileView {
	return fileView{
		Webchat: webchatView{
			Enabled:         cfg.Webchat.Enabled,
			Root:            cfg.Webchat.Root,
			Port:            cfg.Webchat.Port,
			StartupTimeout:  cfg.Webchat.StartupTimeout.String(),
			ShutdownTimeout: cfg.Webchat.ShutdownTimeout.String(),
		},
		ConnectionMode: string(cfg.ConnectionMode),
		Paused:         cfg.Paused,
		Workspace:      cfg.Workspace,
		UI: uiView{
			Verbose:     cfg.UI.Verbose,
			ColorScheme: string(cfg.UI.ColorScheme),
		},
	}
}
