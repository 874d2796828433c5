// SPDX-License-Identifier: MPL-2.0

package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/testutil"
	"github.com/clawdis/webchat/internal/webchat"
	"github.com/clawdis/webchat/pkg/types"
)

func newTestHandler(t *testing.T, paused *atomic.Bool) (*Handler, *webchat.Registry) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "webchat")
	testutil.MustWriteFile(t, filepath.Join(root, "index.html"), []byte("<html>ok</html>"))

	logger := log.NewWithOptions(io.Discard, log.Options{})
	registry := webchat.NewRegistry(webchat.WithLogger(logger))
	t.Cleanup(func() {
		if err := registry.Close(); err != nil {
			t.Errorf("registry.Close() error = %v", err)
		}
	})

	cfg := webchat.DefaultConfig()
	cfg.Root = types.FilesystemPath(root)

	h, err := NewHandler(registry, PauseFunc(paused.Load), WithServerConfig(cfg), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h, registry
}

func TestProcess_Status(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	h, _ := newTestHandler(t, &paused)

	resp, err := h.Process(context.Background(), RequestStatus)
	if err != nil {
		t.Fatalf("Process(status) error = %v", err)
	}
	if !resp.OK || resp.Message != "ready" {
		t.Errorf("Process(status) = %+v, want ok/ready", resp)
	}
}

func TestProcess_Paused(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	paused.Store(true)
	h, registry := newTestHandler(t, &paused)

	for _, req := range []Request{RequestStatus, RequestRPCStatus, RequestOpenWebChat} {
		t.Run(req.String(), func(t *testing.T) {
			resp, err := h.Process(context.Background(), req)
			if err != nil {
				t.Fatalf("Process(%s) error = %v", req, err)
			}
			if resp.OK || resp.Message != "clawdis paused" {
				t.Errorf("Process(%s) = %+v, want paused response", req, resp)
			}
		})
	}

	if keys := registry.Keys(); len(keys) != 0 {
		t.Errorf("paused openWebChat must not start a server, registry has %v", keys)
	}
}

func TestProcess_RPCStatusNotRunning(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	h, _ := newTestHandler(t, &paused)

	resp, err := h.Process(context.Background(), RequestRPCStatus)
	if err != nil {
		t.Fatalf("Process(rpcStatus) error = %v", err)
	}
	if resp.OK || resp.Message != "webchat not running" || resp.URL != "" {
		t.Errorf("Process(rpcStatus) = %+v, want not running", resp)
	}
}

func TestProcess_OpenWebChat(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	h, registry := newTestHandler(t, &paused)

	resp, err := h.Process(context.Background(), RequestOpenWebChat)
	if err != nil {
		t.Fatalf("Process(openWebChat) error = %v", err)
	}
	if !resp.OK || !strings.HasPrefix(resp.URL, "http://127.0.0.1:") || !strings.HasSuffix(resp.URL, "/") {
		t.Fatalf("Process(openWebChat) = %+v, want loopback base URL", resp)
	}

	again, err := h.Process(context.Background(), RequestOpenWebChat)
	if err != nil {
		t.Fatalf("second Process(openWebChat) error = %v", err)
	}
	if again.URL != resp.URL {
		t.Errorf("second openWebChat URL = %q, want reuse of %q", again.URL, resp.URL)
	}

	status, err := h.Process(context.Background(), RequestRPCStatus)
	if err != nil {
		t.Fatalf("Process(rpcStatus) error = %v", err)
	}
	if !status.OK || status.URL != resp.URL || status.Message != "webchat ready at "+resp.URL {
		t.Errorf("Process(rpcStatus) = %+v after open", status)
	}

	if err := registry.Release(h.SessionKey()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	status, _ = h.Process(context.Background(), RequestRPCStatus)
	if status.OK {
		t.Errorf("Process(rpcStatus) after release = %+v, want not running", status)
	}
}

func TestProcess_OpenWebChatBadRoot(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	logger := log.NewWithOptions(io.Discard, log.Options{})
	registry := webchat.NewRegistry(webchat.WithLogger(logger))
	t.Cleanup(func() { _ = registry.Close() })

	cfg := webchat.DefaultConfig()
	cfg.Root = types.FilesystemPath(filepath.Join(t.TempDir(), "missing"))
	h, err := NewHandler(registry, PauseFunc(paused.Load), WithServerConfig(cfg), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	_, err = h.Process(context.Background(), RequestOpenWebChat)
	if !errors.Is(err, webchat.ErrInvalidRoot) {
		t.Errorf("Process(openWebChat) error = %v, want ErrInvalidRoot", err)
	}
}

func TestProcess_UnknownRequest(t *testing.T) {
	t.Parallel()

	var paused atomic.Bool
	h, _ := newTestHandler(t, &paused)

	if _, err := h.Process(context.Background(), Request("reboot")); !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("Process(reboot) error = %v, want ErrUnknownRequest", err)
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(nil, nil); !errors.Is(err, ErrNilRegistry) {
		t.Errorf("NewHandler(nil) error = %v, want ErrNilRegistry", err)
	}

	h, err := NewHandler(webchat.NewRegistry(), nil, WithSessionKey("side"))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if h.SessionKey() != "side" {
		t.Errorf("SessionKey() = %q, want side", h.SessionKey())
	}
	resp, err := h.Process(context.Background(), RequestStatus)
	if err != nil || !resp.OK {
		t.Errorf("nil pause source should mean not paused, got %+v, %v", resp, err)
	}
}

func TestResponse_JSON(t *testing.T) {
	t.Parallel()

	data, err := Response{OK: false, Message: "clawdis paused"}.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if string(data) != `{"ok":false,"message":"clawdis paused"}` {
		t.Errorf("JSON() = %s", data)
	}

	var decoded Response
	if err := json.Unmarshal([]byte(`{"ok":true,"message":"ready"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.OK || decoded.Message != "ready" {
		t.Errorf("decoded = %+v", decoded)
	}
}
