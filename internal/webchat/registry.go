// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry tracks one webchat server per session key. It replaces a
// process-wide singleton: callers that need shared access are handed the
// registry explicitly.
type Registry struct {
	opts []Option

	mu      sync.Mutex
	servers map[string]*Server
}

// NewRegistry creates an empty registry. opts are applied to every server it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:    opts,
		servers: make(map[string]*Server),
	}
}

// Acquire returns the server registered for key, starting a new one from cfg
// if there is none or the previous one stopped or failed. A server returned
// while another caller is still starting it may not be ready yet; poll
// BaseURL or use WaitForBaseURL.
func (r *Registry) Acquire(ctx context.Context, key string, cfg Config) (*Server, error) {
	if key == "" {
		return nil, errors.New("registry key must not be empty")
	}

	r.mu.Lock()
	if s, ok := r.servers[key]; ok {
		if !s.State().IsTerminal() {
			r.mu.Unlock()
			return s, nil
		}
		delete(r.servers, key)
	}
	s := New(cfg, r.opts...)
	r.servers[key] = s
	r.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		r.mu.Lock()
		if r.servers[key] == s {
			delete(r.servers, key)
		}
		r.mu.Unlock()
		_ = s.Stop()
		return nil, fmt.Errorf("start webchat server for %q: %w", key, err)
	}
	return s, nil
}

// Lookup returns the server registered for key, if any.
func (r *Registry) Lookup(key string) (*Server, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[key]
	return s, ok
}

// Release stops and forgets the server for key. Unknown keys are a no-op.
func (r *Registry) Release(key string) error {
	r.mu.Lock()
	s, ok := r.servers[key]
	delete(r.servers, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Stop()
}

// Keys returns the registered session keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.servers))
	for k := range r.servers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Close stops every registered server.
func (r *Registry) Close() error {
	r.mu.Lock()
	servers := r.servers
	r.servers = make(map[string]*Server)
	r.mu.Unlock()

	var errs []error
	for key, s := range servers {
		if err := s.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
