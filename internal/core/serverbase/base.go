// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by TransitionToStarting when Stop() won a race
// against Start(), and by WaitForReady when the server reached a terminal
// state without ever becoming ready.
var ErrStopped = errors.New("server stopped")

// Base provides common fields and lifecycle infrastructure for servers.
// Concrete server implementations embed this struct.
//
// A server instance is single-use: once stopped or failed, create a new instance.
type Base struct {
	// State management (atomic for lock-free reads)
	state atomic.Int32

	// stateMu guards ctx, cancel and lastErr.
	stateMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	lastErr error

	wg sync.WaitGroup

	readyCh  chan struct{}
	doneCh   chan struct{}
	doneOnce sync.Once

	// errMu serializes sends on errCh against its close.
	errMu     sync.Mutex
	errCh     chan error
	errClosed bool
}

// NewBase creates a new Base in the NotStarted state.
func NewBase(opts ...Option) *Base {
	b := &Base{
		readyCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
		errCh:   make(chan error, 1),
	}
	b.state.Store(int32(StateNotStarted))

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// State returns the current server state (atomic, lock-free read).
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsReady returns true if the server is in the Ready state.
func (b *Base) IsReady() bool {
	return b.State() == StateReady
}

// Err returns a channel for receiving async errors from serve goroutines.
// The channel is closed once the server is fully stopped.
func (b *Base) Err() <-chan error {
	return b.errCh
}

// LastError returns the error that caused the Failed state, or nil.
func (b *Base) LastError() error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.lastErr
}

// Context returns the lifecycle context, cancelled on Stop or failure.
// Returns nil before TransitionToStarting.
func (b *Base) Context() context.Context {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.ctx
}

// --- Lifecycle helpers for concrete implementations ---

// TransitionToStarting attempts to transition from NotStarted to Starting.
// Returns an error if the current state is not NotStarted or if ctx is
// already cancelled. Must be called at the beginning of Start().
func (b *Base) TransitionToStarting(ctx context.Context) error {
	// A cancelled caller context must fail before the serve goroutine can
	// publish readiness.
	select {
	case <-ctx.Done():
		b.TransitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
		return b.LastError()
	default:
	}

	// The lifecycle context must exist before the state becomes observable as
	// Starting, otherwise a concurrent Stop could miss the cancel func.
	b.stateMu.Lock()
	if State(b.state.Load()) != StateNotStarted {
		current := State(b.state.Load())
		b.stateMu.Unlock()
		if current == StateStopped || current == StateStopping {
			return fmt.Errorf("cannot start server in state %s: %w", current, ErrStopped)
		}
		return fmt.Errorf("cannot start server in state %s", current)
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.state.Store(int32(StateStarting))
	b.stateMu.Unlock()

	return nil
}

// TransitionToReady marks the server as ready and closes the ready channel.
// It returns false if the server left the Starting state in the meantime
// (for example because Stop() won the race).
func (b *Base) TransitionToReady() bool {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateReady)) {
		close(b.readyCh)
		return true
	}
	return false
}

// TransitionToFailed marks the server as failed with the given error.
// Once Stop() has begun, the error is only recorded; the server still
// finishes in the Stopped state.
func (b *Base) TransitionToFailed(err error) {
	b.stateMu.Lock()
	b.lastErr = err
	cancel := b.cancel
	b.stateMu.Unlock()

	for {
		current := State(b.state.Load())
		if current == StateStopping || current.IsTerminal() {
			break
		}
		if b.state.CompareAndSwap(int32(current), int32(StateFailed)) {
			b.closeDone()
			break
		}
	}

	if cancel != nil {
		cancel()
	}

	b.SendError(err)
}

// TransitionToStopping attempts to transition to Stopping state.
// Returns true if the caller now owns the shutdown, false if there is nothing
// to shut down (already stopping, stopped, failed, or never started).
// A never-started server moves straight to Stopped.
func (b *Base) TransitionToStopping() bool {
	for {
		current := State(b.state.Load())
		switch current {
		case StateStopped, StateFailed, StateStopping:
			return false
		case StateNotStarted:
			if b.state.CompareAndSwap(int32(StateNotStarted), int32(StateStopped)) {
				b.closeDone()
				return false
			}
		case StateStarting, StateReady:
			if !b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				continue
			}
			b.stateMu.Lock()
			cancel := b.cancel
			b.stateMu.Unlock()
			if cancel != nil {
				cancel()
			}
			return true
		default:
			return false
		}
	}
}

// TransitionToStopped marks the server as fully stopped.
// Must be called after all tracked goroutines have exited.
func (b *Base) TransitionToStopped() {
	b.state.Store(int32(StateStopped))
	b.closeDone()
}

// WaitForReady blocks until the server is ready, reaches a terminal state,
// or ctx is cancelled.
func (b *Base) WaitForReady(ctx context.Context) error {
	select {
	case <-b.readyCh:
		return nil
	case <-b.doneCh:
		if err := b.LastError(); err != nil {
			return err
		}
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Go runs fn on a goroutine tracked by WaitForShutdown.
func (b *Base) Go(fn func()) {
	b.wg.Go(fn)
}

// WaitForShutdown blocks until all goroutines started with Go have returned.
func (b *Base) WaitForShutdown() {
	b.wg.Wait()
}

// SendError sends an error to the error channel (non-blocking).
// If the channel is full, the error is dropped.
func (b *Base) SendError(err error) {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	if b.errClosed {
		return
	}
	select {
	case b.errCh <- err:
	default:
	}
}

// CloseErrChannel closes the error channel to signal consumers.
// Safe to call more than once.
func (b *Base) CloseErrChannel() {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	if !b.errClosed {
		b.errClosed = true
		close(b.errCh)
	}
}

// ReadyChannel returns a channel closed when the server becomes Ready.
func (b *Base) ReadyChannel() <-chan struct{} {
	return b.readyCh
}

// Done returns a channel closed once the server reaches Stopped or Failed.
func (b *Base) Done() <-chan struct{} {
	return b.doneCh
}

func (b *Base) closeDone() {
	b.doneOnce.Do(func() { close(b.doneCh) })
}
