// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clawdis/webchat/internal/testutil"
)

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"index.html", "text/html; charset=utf-8"},
		{"INDEX.HTML", "text/html; charset=utf-8"},
		{"asset.txt", "text/plain; charset=utf-8"},
		{"data.json", "application/json"},
		{"app.js", "text/javascript; charset=utf-8"},
		{"style.css", "text/css; charset=utf-8"},
		{"logo.svg", "image/svg+xml"},
		{"font.woff2", "font/woff2"},
		{"blob.unknownext", "application/octet-stream"},
		{"Makefile", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ContentTypeFor(tt.name); got != tt.want {
				t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestRespond_GetAndHead(t *testing.T) {
	t.Parallel()

	_, root := newFixture(t)
	r := newTestResolver(t, root)
	file, err := r.Resolve("/asset.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	get := Respond(http.MethodGet, file)
	head := Respond(http.MethodHead, file)

	if get.Status != http.StatusOK || head.Status != http.StatusOK {
		t.Fatalf("status GET=%d HEAD=%d, want 200", get.Status, head.Status)
	}
	if string(get.Body) != "hello" {
		t.Errorf("GET body = %q, want %q", get.Body, "hello")
	}
	if len(head.Body) != 0 {
		t.Errorf("HEAD body = %q, want empty", head.Body)
	}
	if len(get.Headers) != len(head.Headers) {
		t.Fatalf("header count GET=%d HEAD=%d", len(get.Headers), len(head.Headers))
	}
	for i := range get.Headers {
		if get.Headers[i] != head.Headers[i] {
			t.Errorf("header %d: GET=%v HEAD=%v", i, get.Headers[i], head.Headers[i])
		}
	}
	if cl, _ := head.Header("content-length"); cl != "5" {
		t.Errorf("HEAD Content-Length = %q, want 5", cl)
	}
	if get.Headers[0].Name != "Content-Type" || get.Headers[1].Name != "Content-Length" {
		t.Errorf("header order = %v, want Content-Type then Content-Length", get.Headers)
	}
}

func TestRespond_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	_, root := newFixture(t)
	r := newTestResolver(t, root)
	file, err := r.Resolve("/asset.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions, "BREW"} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			desc := Respond(method, file)
			if desc.Status != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", desc.Status)
			}
			if len(desc.Body) != 0 {
				t.Errorf("body = %q, want empty", desc.Body)
			}
			if allow, _ := desc.Header("Allow"); allow != "GET, HEAD" {
				t.Errorf("Allow = %q", allow)
			}
		})
	}
}

func TestRespond_FileRemovedAfterResolve(t *testing.T) {
	t.Parallel()

	_, root := newFixture(t)
	path := filepath.Join(root, "gone.txt")
	testutil.MustWriteFile(t, path, []byte("soon gone"))

	r := newTestResolver(t, root)
	file, err := r.Resolve("/gone.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if desc := Respond(http.MethodGet, file); desc.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", desc.Status)
	}
}

func TestRespond_FileReplacedAfterResolve(t *testing.T) {
	t.Parallel()

	base, root := newFixture(t)
	path := filepath.Join(root, "swap.txt")
	testutil.MustWriteFile(t, path, []byte("original"))

	r := newTestResolver(t, root)
	file, err := r.Resolve("/swap.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	testutil.MustSymlink(t, filepath.Join(base, "other-root", "secret.txt"), path)

	desc := Respond(http.MethodGet, file)
	if desc.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", desc.Status)
	}
	if strings.Contains(string(desc.Body), "secret") {
		t.Error("response leaked file outside root")
	}
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"traversal GET", http.MethodGet, traversal("/../x"), http.StatusForbidden, "forbidden\n"},
		{"traversal HEAD", http.MethodHead, traversal("/../x"), http.StatusForbidden, ""},
		{"not found GET", http.MethodGet, notFound("/x", os.ErrNotExist), http.StatusNotFound, "not found\n"},
		{"other error", http.MethodGet, os.ErrPermission, http.StatusNotFound, "not found\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			desc := RespondError(tt.method, tt.err)
			if desc.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", desc.Status, tt.wantStatus)
			}
			if string(desc.Body) != tt.wantBody {
				t.Errorf("body = %q, want %q", desc.Body, tt.wantBody)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	_, root := newFixture(t)
	h := NewHandler(newTestResolver(t, root), nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{"index", http.MethodGet, "/", http.StatusOK, "<html>ok</html>"},
		{"asset", http.MethodGet, "/asset.txt", http.StatusOK, "hello"},
		{"head asset", http.MethodHead, "/asset.txt", http.StatusOK, ""},
		{"missing", http.MethodGet, "/missing.txt", http.StatusNotFound, "not found\n"},
		{"traversal", http.MethodGet, "/webchat/../other-root/secret.txt", http.StatusForbidden, "forbidden\n"},
		{"encoded traversal", http.MethodGet, "/webchat/%2e%2e/other-root/secret.txt", http.StatusForbidden, "forbidden\n"},
		{"post", http.MethodPost, "/asset.txt", http.StatusMethodNotAllowed, ""},
		{"post traversal", http.MethodPost, "/../secret.txt", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}
