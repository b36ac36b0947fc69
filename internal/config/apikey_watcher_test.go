package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAPIKeyWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(path, []byte("key-v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 4)
	w, err := NewAPIKeyWatcher(path, func(k string) { changes <- k })
	if err != nil {
		t.Fatalf("NewAPIKeyWatcher: %v", err)
	}
	if w.Current() != "key-v1" {
		t.Fatalf("expected initial key loaded, got %q", w.Current())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(path, []byte("key-v2"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got != "key-v2" {
			t.Fatalf("expected key-v2, got %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
	if w.Current() != "key-v2" {
		t.Fatalf("expected Current() to reflect the reload, got %q", w.Current())
	}
}

func TestNewAPIKeyWatcher_MissingFileErrors(t *testing.T) {
	_, err := NewAPIKeyWatcher("/nonexistent/path/key.txt", nil)
	if err == nil {
		t.Fatal("expected an error for a missing initial key file")
	}
}
