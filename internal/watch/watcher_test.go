// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/testutil"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func runWatcher(t *testing.T, w *Watcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
	return cancel
}

func TestWatcher_DebouncesChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "assets"), 0o755)

	var (
		mu    sync.Mutex
		calls int
		seen  []string
	)
	done := make(chan struct{}, 1)

	w, err := New(Config{
		Root:     root,
		Debounce: 100 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			seen = append(seen, changed...)
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runWatcher(t, w)

	for _, name := range []string{"index.html", "app.js", filepath.Join("assets", "app.css")} {
		testutil.MustWriteFile(t, filepath.Join(root, name), []byte("x"))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"index.html", "app.js", "assets/app.css"} {
		if !slices.Contains(seen, want) {
			t.Errorf("expected %q in changed paths, got %v", want, seen)
		}
	}
}

func TestWatcher_IgnoresAndPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:     root,
		Patterns: []string{"**/*.html", "**/*.js"},
		Ignore:   []string{"**/*.map.js"},
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runWatcher(t, w)

	testutil.MustWriteFile(t, filepath.Join(root, "notes.txt"), []byte("x"))
	testutil.MustWriteFile(t, filepath.Join(root, "bundle.map.js"), []byte("x"))
	testutil.MustWriteFile(t, filepath.Join(root, "index.swp"), []byte("x"))
	time.Sleep(200 * time.Millisecond)
	testutil.MustWriteFile(t, filepath.Join(root, "index.html"), []byte("x"))

	select {
	case changed := <-changes:
		if !slices.Equal(changed, []string{"index.html"}) {
			t.Errorf("changed = %v, want only index.html", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	changes := make(chan []string, 8)

	w, err := New(Config{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runWatcher(t, w)

	testutil.MustMkdirAll(t, filepath.Join(root, "late"), 0o755)
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for directory creation")
	}

	testutil.MustWriteFile(t, filepath.Join(root, "late", "chunk.js"), []byte("x"))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-changes:
			if slices.Contains(changed, "late/chunk.js") {
				return
			}
		case <-deadline:
			t.Fatal("file in a directory created after New was not reported")
		}
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cancel := runWatcher(t, w)
	defer cancel()

	time.Sleep(20 * time.Millisecond)
	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("New() with empty root should fail")
	}
	if _, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("New() with missing root should fail")
	}
	if _, err := New(Config{Root: t.TempDir(), Patterns: []string{"[unclosed"}}); err == nil {
		t.Error("New() with invalid pattern should fail")
	}
	if _, err := New(Config{Root: t.TempDir(), Ignore: []string{"[unclosed"}}); err == nil {
		t.Error("New() with invalid ignore pattern should fail")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	got := DefaultIgnores()
	got[0] = "mutated"
	if DefaultIgnores()[0] == "mutated" {
		t.Error("DefaultIgnores must return a copy")
	}

	for _, rel := range []string{".git/HEAD", "a/.DS_Store", "index.html~", "x.swp"} {
		if !matchAny(defaultIgnores, rel) {
			t.Errorf("%q should be ignored by default", rel)
		}
	}
	if matchAny(defaultIgnores, "index.html") {
		t.Error("index.html must not be ignored")
	}
}
