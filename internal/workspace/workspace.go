// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AgentsFilename is the instructions file created in every workspace.
const AgentsFilename = "AGENTS.md"

// ErrEmptyPath is returned by ResolvePath for blank input.
var ErrEmptyPath = errors.New("workspace path is empty")

// agentsTemplate seeds a new AGENTS.md.
const agentsTemplate = `# AGENTS.md - Agent Workspace

This folder is the assistant's working directory.

## Guidelines
- Keep notes and scratch files here rather than elsewhere on disk.
- Record decisions and follow-ups in this file so they survive restarts.
- Ask before deleting anything you did not create.
`

// DisplayPath renders path with the home directory abbreviated to "~".
// Paths outside home are returned cleaned but otherwise unchanged.
func DisplayPath(path string) string {
	clean := filepath.Clean(path)
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return clean
	}
	home = filepath.Clean(home)

	if clean == home {
		return "~"
	}
	rel, err := filepath.Rel(home, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return clean
	}
	return "~" + string(filepath.Separator) + rel
}

// ResolvePath expands a leading "~" and returns an absolute, cleaned path.
func ResolvePath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyPath
	}

	if raw == "~" || strings.HasPrefix(raw, "~/") || strings.HasPrefix(raw, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		raw = filepath.Join(home, raw[1:])
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path %q: %w", raw, err)
	}
	return abs, nil
}

// AgentsPath returns the AGENTS.md path inside dir.
func AgentsPath(dir string) string {
	return filepath.Join(dir, AgentsFilename)
}

// Bootstrap creates dir and an AGENTS.md inside it if either is missing.
// An existing AGENTS.md is never modified. It returns the AGENTS.md path and
// is safe to call repeatedly.
func Bootstrap(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", dir, err)
	}

	path := AgentsPath(dir)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := f.WriteString(agentsTemplate); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
