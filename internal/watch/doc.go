// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes to a chat UI bundle while it is being
// served. Events are debounced so an editor save or a bundler rebuild is
// reported once with every changed path.
package watch
