// SPDX-License-Identifier: MPL-2.0

// Package workspace manages the agent workspace directory: resolving and
// displaying its path, and bootstrapping the AGENTS.md file agents read on
// startup.
package workspace
