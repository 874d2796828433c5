// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the webchat server, its
// configuration and the CLI: listen ports, filesystem paths and exit codes.
// Each type carries its own validation and a typed error that wraps a sentinel.
//
// This package is a leaf dependency: it imports only the standard library.
package types
