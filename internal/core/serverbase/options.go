// SPDX-License-Identifier: MPL-2.0

package serverbase

// Option configures a Base instance.
type Option func(*Base)

// WithErrorChannel sets the async error channel buffer size.
// Default buffer size is 1; errors beyond the buffer are dropped.
func WithErrorChannel(size int) Option {
	return func(b *Base) {
		if size < 1 {
			size = 1
		}
		b.errCh = make(chan error, size)
	}
}
