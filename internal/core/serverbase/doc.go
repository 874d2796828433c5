// SPDX-License-Identifier: MPL-2.0

// Package serverbase provides the single-use lifecycle state machine shared by
// long-running server components such as the webchat file server.
//
// A Base moves NotStarted -> Starting -> Ready -> Stopping -> Stopped, or into
// Failed from any pre-stop state. State reads are atomic and lock-free so that
// readiness can be polled at any frequency; transitions are serialized with
// compare-and-swap. Stopped and Failed are terminal: a server instance is never
// restarted, callers construct a new one.
package serverbase
