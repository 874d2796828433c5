// SPDX-License-Identifier: MPL-2.0

// Package control answers the small set of control requests the host
// application sends about the webchat surface: overall status, the RPC
// status of the chat server, and opening the chat UI for a session.
package control
