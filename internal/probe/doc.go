// SPDX-License-Identifier: MPL-2.0

// Package probe is the client side of the webchat server: what a window or
// panel controller uses to wait until a base URL answers and, optionally, to
// confirm the served chat bundle booted.
package probe
