// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/core/serverbase"
	"github.com/clawdis/webchat/pkg/types"
)

// ErrInvalidServerConfig is the sentinel error wrapped by InvalidServerConfigError.
var ErrInvalidServerConfig = errors.New("invalid webchat server config")

type (
	// Config holds immutable configuration for the webchat server.
	Config struct {
		// Root is the directory holding the chat UI bundle.
		Root types.FilesystemPath
		// PreferredPort is bound exactly when non-zero; zero picks an ephemeral port.
		PreferredPort types.ListenPort
		// StartupTimeout bounds Start (default: 5s).
		StartupTimeout time.Duration
		// ShutdownTimeout bounds the graceful part of Stop before open
		// connections are closed forcibly (default: 2s).
		ShutdownTimeout time.Duration
		// ReadHeaderTimeout bounds reading request headers (default: 10s).
		ReadHeaderTimeout time.Duration
	}

	// InvalidServerConfigError collects field-level validation errors.
	InvalidServerConfigError struct {
		FieldErrors []error
	}

	// Option configures a Server.
	Option func(*Server)

	// Server is the embedded loopback HTTP server for the chat UI.
	// A Server instance is single-use: once stopped or failed, create a new instance.
	Server struct {
		*serverbase.Base

		cfg    Config
		logger *log.Logger

		// setupMu is held by Start until the accept loop is launched.
		setupMu sync.Mutex

		// srvMu guards httpServer, listener and resolver.
		srvMu      sync.Mutex
		httpServer *http.Server
		listener   net.Listener
		resolver   *Resolver

		port    atomic.Int32
		baseURL atomic.Pointer[url.URL]
	}
)

// DefaultConfig returns a configuration with default timeouts and an
// ephemeral port. Root must still be set.
func DefaultConfig() Config {
	return Config{
		StartupTimeout:    5 * time.Second,
		ShutdownTimeout:   2 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Validate checks the fields that can be checked without touching the
// filesystem. Root existence is checked by Start.
func (c Config) Validate() error {
	var errs []error
	if err := c.Root.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.PreferredPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.StartupTimeout < 0 {
		errs = append(errs, fmt.Errorf("startup timeout %s must not be negative", c.StartupTimeout))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout %s must not be negative", c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return &InvalidServerConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidServerConfigError.
func (e *InvalidServerConfigError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidServerConfig, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidServerConfig and the field errors.
func (e *InvalidServerConfigError) Unwrap() []error {
	return append([]error{ErrInvalidServerConfig}, e.FieldErrors...)
}

// WithLogger sets the logger used for lifecycle and request logging.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for cfg. Zero timeouts take their defaults. The server
// does not touch the filesystem or the network until Start is called.
func New(cfg Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}

	s := &Server{
		Base: serverbase.NewBase(),
		cfg:  cfg,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "webchat",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseURL returns http://127.0.0.1:<port>/ once the accept loop is running,
// and nil before that or after Stop. It never blocks and is safe to poll
// from any goroutine. The returned URL is a copy.
func (s *Server) BaseURL() *url.URL {
	if s.State() != serverbase.StateReady {
		return nil
	}
	u := s.baseURL.Load()
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// Port returns the bound port, or 0 before binding.
func (s *Server) Port() int {
	return int(s.port.Load())
}

// Root returns the canonical root directory, or "" before Start resolved it.
func (s *Server) Root() string {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	if s.resolver == nil {
		return ""
	}
	return s.resolver.Root()
}

// Config returns the server configuration.
func (s *Server) Config() Config {
	return s.cfg
}
