// SPDX-License-Identifier: MPL-2.0

// Package config handles webchat configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/webchat/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/webchat/config.cue on macOS,
// %APPDATA%\webchat\config.cue on Windows), validated against the embedded
// config_schema.cue, and overlaid with WEBCHAT_* environment variables.
//
// The configuration can be exported as CUE, TOML, YAML or JSON.
package config
