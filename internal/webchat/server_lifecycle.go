// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/core/serverbase"
	"github.com/clawdis/webchat/pkg/types"
)

// readyListener reports readiness the first time the accept loop calls
// Accept, so BaseURL stays nil until connections are actually being taken.
type readyListener struct {
	net.Listener
	once    sync.Once
	onReady func()
}

func (l *readyListener) Accept() (net.Conn, error) {
	l.once.Do(l.onReady)
	return l.Listener.Accept()
}

// Start validates the root, binds the loopback port and starts the accept
// loop on its own goroutine. It blocks until either:
//   - the accept loop is running (returns nil; BaseURL is now non-nil)
//   - the root is invalid or the bind fails (returns RootError or BindError)
//   - Stop was called concurrently (returns ErrServerStopped)
//   - the startup timeout or ctx expires (returns the context error)
func (s *Server) Start(ctx context.Context) error {
	startupCtx, startupCancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer startupCancel()

	if err := s.launch(ctx, startupCtx); err != nil {
		return err
	}

	select {
	case <-s.ReadyChannel():
		s.logger.Info("webchat server started", "url", s.BaseURL(), "root", s.Root())
		return nil

	case <-s.Done():
		if err := s.LastError(); err != nil {
			return err
		}
		return fmt.Errorf("start aborted: %w", ErrServerStopped)

	case <-startupCtx.Done():
		s.TransitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		s.closeServer()
		s.WaitForShutdown()
		return s.LastError()
	}
}

// launch runs the synchronous part of Start under setupMu, so a concurrent
// Stop cannot return while a freshly bound socket is still open.
func (s *Server) launch(ctx, startupCtx context.Context) error {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	if err := s.TransitionToStarting(ctx); err != nil {
		return err
	}

	if err := s.cfg.Validate(); err != nil {
		s.TransitionToFailed(err)
		return err
	}

	resolver, err := NewResolver(s.cfg.Root)
	if err != nil {
		s.TransitionToFailed(err)
		return err
	}

	binding, err := Bind(startupCtx, s.cfg.PreferredPort)
	if err != nil {
		s.TransitionToFailed(err)
		return err
	}

	lifecycleCtx := s.Context()
	srv := &http.Server{
		Handler:           NewHandler(resolver, s.logger),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ErrorLog:          s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		BaseContext:       func(net.Listener) context.Context { return lifecycleCtx },
	}

	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	if s.State() != serverbase.StateStarting {
		_ = binding.Listener.Close() // Stop won the race; release the port.
		return fmt.Errorf("start aborted: %w", ErrServerStopped)
	}
	s.httpServer = srv
	s.listener = binding.Listener
	s.resolver = resolver
	s.port.Store(int32(binding.Port))
	s.Go(func() { s.serve(srv, binding) })
	return nil
}

// Stop closes the listening socket and every open connection, then moves the
// server to Stopped. Safe to call multiple times, concurrently, and on a
// server that was never started; only the first call does any work and later
// calls wait for it to finish.
func (s *Server) Stop() error {
	if !s.TransitionToStopping() {
		<-s.Done()
		return nil
	}
	return s.doStop()
}

func (s *Server) doStop() error {
	// Wait out an in-progress launch; it sees Stopping and backs off.
	s.setupMu.Lock()
	s.setupMu.Unlock() //nolint:staticcheck // barrier only

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.srvMu.Lock()
	srv := s.httpServer
	s.srvMu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Debug("graceful shutdown incomplete, closing connections", "error", err)
		}
	}
	s.closeServer()

	s.WaitForShutdown()
	s.baseURL.Store(nil)

	s.TransitionToStopped()
	s.CloseErrChannel()
	s.logger.Info("webchat server stopped", "port", s.Port())
	return nil
}

// closeServer force-closes the HTTP server and listener.
func (s *Server) closeServer() {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	if s.httpServer != nil {
		_ = s.httpServer.Close() //nolint:errcheck // Best-effort cleanup during shutdown
	}
	if s.listener != nil {
		_ = s.listener.Close() //nolint:errcheck // Listener may already be closed by Serve
	}
}

// serve runs the accept loop until the server is shut down.
func (s *Server) serve(srv *http.Server, binding *Binding) {
	ln := &readyListener{
		Listener: binding.Listener,
		onReady:  func() { s.markReady(binding.Port) },
	}

	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}

	s.logger.Error("accept loop failed", "error", err)
	s.TransitionToFailed(fmt.Errorf("serve: %w", err))
	_ = srv.Close()
}

func (s *Server) markReady(port int) {
	s.baseURL.Store(&url.URL{
		Scheme: "http",
		Host:   types.ListenPort(port).LoopbackAddress(),
		Path:   "/",
	})
	s.TransitionToReady()
}

// String returns a short description for logs.
func (s *Server) String() string {
	return "webchat server " + s.State().String() + " on port " + strconv.Itoa(s.Port())
}
