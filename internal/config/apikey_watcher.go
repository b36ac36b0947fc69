package config

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval is the always-on safety-net poll period, run alongside
// fsnotify in case the filesystem event is missed (teacher's
// license.Manager.StartWatcher runs both unconditionally for the same
// reason).
const pollInterval = 60 * time.Second

// APIKeyWatcher hot-reloads a `file:`-backed UFP_API_KEY without a
// process restart. Grounded on the teacher's internal/license/watcher.go
// fsnotify-plus-polling-fallback shape.
type APIKeyWatcher struct {
	path string
	onKV func(string)

	mu      sync.RWMutex
	current string
}

// NewAPIKeyWatcher reads path once to seed the current key, returning
// an error if the initial read fails.
func NewAPIKeyWatcher(path string, onChange func(string)) (*APIKeyWatcher, error) {
	initial, err := readKey(path)
	if err != nil {
		return nil, err
	}
	return &APIKeyWatcher{path: path, onKV: onChange, current: initial}, nil
}

// Current returns the most recently loaded key.
func (w *APIKeyWatcher) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start runs the fsnotify watcher plus a 60s polling fallback until ctx
// is canceled.
func (w *APIKeyWatcher) Start(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("config: api key watcher: fsnotify unavailable (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(w.path); err != nil {
		log.Printf("config: api key watcher: failed to watch %s (%v), falling back to polling", w.path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						time.Sleep(100 * time.Millisecond)
						w.reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("config: api key watcher error: %v", err)
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.reload()
			}
		}
	}()
}

func (w *APIKeyWatcher) reload() {
	key, err := readKey(w.path)
	if err != nil {
		log.Printf("config: api key watcher: reload %s failed: %v", w.path, err)
		return
	}
	w.mu.Lock()
	changed := key != w.current
	w.current = key
	w.mu.Unlock()
	if changed && w.onKV != nil {
		w.onKV(key)
	}
}

func readKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
