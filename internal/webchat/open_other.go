// SPDX-License-Identifier: MPL-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package webchat

import "os"

// openNoFollow falls back to a plain open; the SameFile check in the
// responder still catches a file replaced after resolution.
func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
