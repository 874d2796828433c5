// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// DefaultPollInterval is how often WaitForBaseURL checks for readiness.
const DefaultPollInterval = 25 * time.Millisecond

// BaseURLSource is anything exposing a non-blocking readiness accessor.
type BaseURLSource interface {
	BaseURL() *url.URL
}

// WaitForBaseURL polls src until it reports a base URL or ctx is done. This
// is how a window controller waits for the server before loading the UI.
// A non-positive interval uses DefaultPollInterval.
func WaitForBaseURL(ctx context.Context, src BaseURLSource, interval time.Duration) (*url.URL, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if u := src.BaseURL(); u != nil {
		return u, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
		case <-ticker.C:
			if u := src.BaseURL(); u != nil {
				return u, nil
			}
		}
	}
}
