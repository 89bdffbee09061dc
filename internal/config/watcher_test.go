package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.toml")
	if err := os.WriteFile(path, []byte("quality = 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := func(p string) (string, error) {
		data, err := os.ReadFile(p)
		return string(data), err
	}

	w := NewConfigWatcher(path, loader, slog.Default(), WithDebounce[string](50*time.Millisecond))

	reloaded := make(chan string, 1)
	w.OnReload(func(content string) {
		select {
		case reloaded <- content:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("quality = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case content := <-reloaded:
		if content != "quality = 8\n" {
			t.Errorf("handler received stale content: %q", content)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.toml")
	if err := os.WriteFile(path, []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := func(p string) (string, error) {
		return "", fmt.Errorf("bad config")
	}

	errs := make(chan error, 1)
	w := NewConfigWatcher(path, loader, slog.Default(),
		WithDebounce[string](50*time.Millisecond),
		WithErrorHandler[string](func(err error) {
			select {
			case errs <- err:
			default:
			}
		}))

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if err.Error() != "bad config" {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error handler")
	}
}

func TestWatcherStartFailsForMissingFile(t *testing.T) {
	w := NewConfigWatcher("/nonexistent/camera.toml", func(string) (int, error) { return 0, nil }, slog.Default())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("expected error watching a missing file")
	}
}
