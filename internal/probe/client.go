// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultRequestTimeout bounds a single probe request.
	DefaultRequestTimeout = 2 * time.Second
	// DefaultPollInterval matches the server side readiness poll.
	DefaultPollInterval = 25 * time.Millisecond

	// AppElementID is the id of the element the chat bundle mounts into.
	AppElementID = "app"
	// BootedAttr is set to "1" on the app element once the bundle booted.
	BootedAttr = "data-booted"

	maxIndexBytes = 4 << 20
)

var (
	// ErrUnreachable is returned when the base URL never answered in time.
	ErrUnreachable = errors.New("webchat unreachable")
	// ErrNotBooted is returned when the index was served but the app element
	// is missing or not marked booted.
	ErrNotBooted = errors.New("webchat bundle not booted")
	// ErrInvalidBaseURL is returned for base URLs that are not absolute http URLs.
	ErrInvalidBaseURL = errors.New("invalid webchat base URL")
)

type (
	// Client probes a webchat base URL.
	Client struct {
		client       *http.Client
		pollInterval time.Duration
	}

	// Option configures a Client.
	Option func(*Client)

	// Result describes a successful probe.
	Result struct {
		URL         string
		Status      int
		ContentType string
		Booted      bool
		Elapsed     time.Duration
	}
)

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithPollInterval sets how often WaitReachable retries.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: DefaultRequestTimeout},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseBaseURL validates raw as an absolute http(s) URL with a trailing slash
// path.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// IsAvailable reports whether base answers a single GET with 200.
func (c *Client) IsAvailable(ctx context.Context, base *url.URL) bool {
	resp, err := c.get(ctx, base)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// WaitReachable polls base until it answers with 200 or ctx is done.
func (c *Client) WaitReachable(ctx context.Context, base *url.URL) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if c.IsAvailable(ctx, base) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrUnreachable, base, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Probe waits for base to become reachable and fetches its index. With
// expectBooted, it keeps polling until the index marks the app as booted.
func (c *Client) Probe(ctx context.Context, base *url.URL, expectBooted bool) (Result, error) {
	start := time.Now()
	if err := c.WaitReachable(ctx, base); err != nil {
		return Result{}, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last Result
	for {
		res, err := c.fetchIndex(ctx, base)
		if err != nil {
			if ctx.Err() != nil && last.Status != 0 {
				return last, fmt.Errorf("%w: %s: %w", ErrNotBooted, base, ctx.Err())
			}
			return Result{}, err
		}
		res.Elapsed = time.Since(start)
		if !expectBooted || res.Booted {
			return res, nil
		}
		last = res

		select {
		case <-ctx.Done():
			return res, fmt.Errorf("%w: %s: %w", ErrNotBooted, base, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchIndex(ctx context.Context, base *url.URL) (Result, error) {
	resp, err := c.get(ctx, base)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	res := Result{
		URL:         base.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("%w: %s answered %d", ErrUnreachable, base, resp.StatusCode)
	}

	booted, err := IsBooted(io.LimitReader(resp.Body, maxIndexBytes))
	if err != nil {
		return res, fmt.Errorf("parse index from %s: %w", base, err)
	}
	res.Booted = booted
	return res, nil
}

func (c *Client) get(ctx context.Context, base *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// IsBooted parses an HTML document and reports whether it contains an
// element with id "app" whose data-booted attribute is "1".
func IsBooted(r io.Reader) (bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return false, err
	}
	return findBooted(doc), nil
}

func findBooted(n *html.Node) bool {
	if n.Type == html.ElementNode {
		var id, booted string
		for _, a := range n.Attr {
			switch a.Key {
			case "id":
				id = a.Val
			case BootedAttr:
				booted = a.Val
			}
		}
		if id == AppElementID && booted == "1" {
			return true
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if findBooted(child) {
			return true
		}
	}
	return false
}
