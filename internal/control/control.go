// SPDX-License-Identifier: MPL-2.0

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/webchat"
)

const (
	// RequestStatus asks whether the application is accepting work.
	RequestStatus Request = "status"
	// RequestRPCStatus asks for the state of the session's webchat server.
	RequestRPCStatus Request = "rpcStatus"
	// RequestOpenWebChat starts the session's webchat server if needed and
	// returns its base URL.
	RequestOpenWebChat Request = "openWebChat"

	// DefaultSessionKey is the registry key used when none is configured.
	DefaultSessionKey = "main"

	msgReady      = "ready"
	msgPaused     = "clawdis paused"
	msgNotRunning = "webchat not running"
)

var (
	// ErrUnknownRequest is returned for request names Process does not know.
	ErrUnknownRequest = errors.New("unknown control request")

	// ErrNilRegistry is returned by NewHandler when no registry is given.
	ErrNilRegistry = errors.New("control handler requires a registry")
)

type (
	// Request names a control operation.
	Request string

	// Response is the JSON reply to a control request.
	Response struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	// PauseSource reports whether the application is paused.
	PauseSource interface {
		Paused() bool
	}

	// PauseFunc adapts a plain function to PauseSource.
	PauseFunc func() bool

	// Handler processes control requests against a webchat registry.
	Handler struct {
		registry   *webchat.Registry
		pause      PauseSource
		sessionKey string
		server     webchat.Config
		logger     *log.Logger
	}

	// HandlerOption configures a Handler.
	HandlerOption func(*Handler)
)

// Paused implements PauseSource.
func (f PauseFunc) Paused() bool { return f() }

// Validate reports whether r is a known request.
func (r Request) Validate() error {
	switch r {
	case RequestStatus, RequestRPCStatus, RequestOpenWebChat:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRequest, string(r))
	}
}

// String returns the request name.
func (r Request) String() string { return string(r) }

// JSON encodes the response the way it travels over the control channel.
func (r Response) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// WithSessionKey sets the registry key used for the webchat server.
func WithSessionKey(key string) HandlerOption {
	return func(h *Handler) {
		if key != "" {
			h.sessionKey = key
		}
	}
}

// WithServerConfig sets the configuration used when openWebChat has to start
// a server.
func WithServerConfig(cfg webchat.Config) HandlerOption {
	return func(h *Handler) { h.server = cfg }
}

// WithLogger sets the handler's logger.
func WithLogger(logger *log.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler. A nil pause source means never paused.
func NewHandler(registry *webchat.Registry, pause PauseSource, opts ...HandlerOption) (*Handler, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if pause == nil {
		pause = PauseFunc(func() bool { return false })
	}

	h := &Handler{
		registry:   registry,
		pause:      pause,
		sessionKey: DefaultSessionKey,
		server:     webchat.DefaultConfig(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// SessionKey returns the registry key the handler operates on.
func (h *Handler) SessionKey() string { return h.sessionKey }

// Process answers req. While paused every known request gets the paused
// response. Only failures to start or reach the server are returned as
// errors; a not-running server is a regular response.
func (h *Handler) Process(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	if h.pause.Paused() {
		h.logger.Debug("control request while paused", "request", req)
		return Response{OK: false, Message: msgPaused}, nil
	}

	switch req {
	case RequestStatus:
		return Response{OK: true, Message: msgReady}, nil
	case RequestRPCStatus:
		return h.rpcStatus(), nil
	case RequestOpenWebChat:
		return h.openWebChat(ctx)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownRequest, string(req))
	}
}

func (h *Handler) rpcStatus() Response {
	s, ok := h.registry.Lookup(h.sessionKey)
	if !ok {
		return Response{OK: false, Message: msgNotRunning}
	}
	u := s.BaseURL()
	if u == nil {
		return Response{OK: false, Message: msgNotRunning}
	}
	return Response{OK: true, Message: "webchat ready at " + u.String(), URL: u.String()}
}

func (h *Handler) openWebChat(ctx context.Context) (Response, error) {
	s, err := h.registry.Acquire(ctx, h.sessionKey, h.server)
	if err != nil {
		return Response{}, fmt.Errorf("open webchat: %w", err)
	}

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		timeout := h.server.StartupTimeout
		if timeout <= 0 {
			timeout = webchat.DefaultConfig().StartupTimeout
		}
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u, err := webchat.WaitForBaseURL(waitCtx, s, webchat.DefaultPollInterval)
	if err != nil {
		return Response{}, fmt.Errorf("open webchat: %w", err)
	}
	h.logger.Info("webchat opened", "session", h.sessionKey, "url", u.String())
	return Response{OK: true, Message: "webchat ready at " + u.String(), URL: u.String()}, nil
}
