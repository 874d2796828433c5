// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the webchat CLI: serving and checking a chat UI
// bundle, probing a running server, answering control requests, managing the
// agent workspace and editing configuration.
package cmd
