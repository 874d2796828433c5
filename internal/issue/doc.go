// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable, user-facing errors for the webchat CLI
// and a catalog of Markdown explanations for the failures users can fix
// themselves (bad configuration, missing UI bundle, busy port, ...).
package issue
