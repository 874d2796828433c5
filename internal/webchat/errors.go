// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"errors"
	"fmt"

	"github.com/clawdis/webchat/internal/core/serverbase"
	"github.com/clawdis/webchat/pkg/types"
)

const (
	// BindPortUnavailable means the preferred port is taken or otherwise unusable.
	BindPortUnavailable BindReason = iota + 1
	// BindPermissionDenied means the OS refused the bind (e.g. privileged port).
	BindPermissionDenied
)

const (
	// PathTraversal means the request would resolve outside the root.
	PathTraversal PathKind = iota + 1
	// PathNotFound means there is no regular file at the resolved location.
	PathNotFound
)

var (
	// ErrPortUnavailable is wrapped by BindError for BindPortUnavailable.
	ErrPortUnavailable = errors.New("port unavailable")
	// ErrPermissionDenied is wrapped by BindError for BindPermissionDenied.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTraversal is wrapped by PathError for PathTraversal.
	ErrTraversal = errors.New("path escapes root")
	// ErrNotFound is wrapped by PathError for PathNotFound.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidRoot is wrapped by RootError.
	ErrInvalidRoot = errors.New("invalid root directory")
	// ErrServerStopped is returned by Start when Stop won the race.
	ErrServerStopped = serverbase.ErrStopped
	// ErrNotReady is returned by WaitForBaseURL when the deadline passes first.
	ErrNotReady = errors.New("server did not become ready")
)

type (
	// BindReason classifies a BindError.
	BindReason int

	// BindError is returned when the loopback listener cannot be created.
	// It is fatal to Start; no fallback port is tried.
	BindError struct {
		Port   types.ListenPort
		Reason BindReason
		Err    error
	}

	// PathKind classifies a PathError.
	PathKind int

	// PathError is returned by the resolver. It is never fatal to the server;
	// the responder translates it into 403 or 404.
	PathError struct {
		Kind PathKind
		// Path is the raw request path, never a filesystem location.
		Path string
		Err  error
	}

	// RootError is returned by Start when the configured root is not an
	// existing directory.
	RootError struct {
		Root types.FilesystemPath
		Err  error
	}
)

// String returns a short description of the bind failure reason.
func (r BindReason) String() string {
	switch r {
	case BindPortUnavailable:
		return "port unavailable"
	case BindPermissionDenied:
		return "permission denied"
	default:
		return "unknown"
	}
}

// Error implements the error interface for BindError.
func (e *BindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bind %s: %s: %v", e.Port.LoopbackAddress(), e.Reason, e.Err)
	}
	return fmt.Sprintf("bind %s: %s", e.Port.LoopbackAddress(), e.Reason)
}

// Unwrap exposes both the reason sentinel and the underlying OS error.
func (e *BindError) Unwrap() []error {
	var sentinel error = ErrPortUnavailable
	if e.Reason == BindPermissionDenied {
		sentinel = ErrPermissionDenied
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// String returns a short description of the path failure kind.
func (k PathKind) String() string {
	switch k {
	case PathTraversal:
		return "traversal"
	case PathNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error implements the error interface for PathError.
func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Path, e.Kind)
}

// Unwrap exposes the kind sentinel and the underlying error, if any.
func (e *PathError) Unwrap() []error {
	var sentinel error = ErrNotFound
	if e.Kind == PathTraversal {
		sentinel = ErrTraversal
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// Error implements the error interface for RootError.
func (e *RootError) Error() string {
	return fmt.Sprintf("invalid root directory %q: %v", e.Root, e.Err)
}

// Unwrap exposes ErrInvalidRoot and the underlying error.
func (e *RootError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidRoot}
	}
	return []error{ErrInvalidRoot, e.Err}
}

func traversal(path string) *PathError {
	return &PathError{Kind: PathTraversal, Path: path}
}

func notFound(path string, err error) *PathError {
	return &PathError{Kind: PathNotFound, Path: path, Err: err}
}
