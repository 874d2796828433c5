// SPDX-License-Identifier: MPL-2.0

// Package webchat implements the embedded loopback HTTP server that serves the
// single-page chat UI bundle to a native window or panel.
//
// The server binds 127.0.0.1 only, on a preferred or OS-assigned port, and
// serves GET and HEAD requests for regular files below a sandboxed root.
// Every request path is percent-decoded, rejected if it contains a ".."
// segment or a NUL byte, then joined onto the canonical root and canonicalized
// (symlinks resolved) before a strict prefix check. Escapes yield 403, missing
// files 404, other methods 405.
//
// Readiness is observable without blocking through Server.BaseURL, which is
// nil until the accept loop is running; WaitForBaseURL polls it the way a
// window controller does.
package webchat
