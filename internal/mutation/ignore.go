// Package mutation implements the write path: a per-device dirty
// buffer, diff-to-minimal-PATCH computation, and the echo-suppression
// ignore table (spec.md §4.5).
package mutation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultIgnoreTTL is the ignore table's default entry lifetime (reset
// keyed by device-id/field-path). Configurable via Config.EchoSuppressTTL.
const defaultIgnoreTTL = 2 * time.Second

// serverDerivedFields must never be suppressed even if the controller
// happens to echo them back inside a self-initiated PATCH's response
// packet (spec.md §4.5: "these are enumerated in a static allow-list").
var serverDerivedFields = map[string]bool{
	"lastSeen": true,
	"upSince":  true,
	"stats":    true,
}

// IgnoreKey identifies one in-flight self-initiated change.
type IgnoreKey struct {
	DeviceID  string
	FieldPath string
}

type ignoreEntry struct {
	id      uuid.UUID
	expires time.Time
}

// IgnoreTable is a TTL'd set of (device-id, field-path) keys the diff
// engine consults before emitting a notification for an echoed change.
// Grounded on the teacher's RedisBlacklist TTL-key idiom
// (internal/auth/blacklist.go), reduced to an in-process map since the
// echo window is single-process by construction (§5: one reader task
// owns the graph).
type IgnoreTable struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[IgnoreKey]ignoreEntry
}

// NewIgnoreTable builds a table with the given TTL; ttl <= 0 falls back
// to defaultIgnoreTTL.
func NewIgnoreTable(ttl time.Duration) *IgnoreTable {
	if ttl <= 0 {
		ttl = defaultIgnoreTTL
	}
	return &IgnoreTable{ttl: ttl, entries: make(map[IgnoreKey]ignoreEntry)}
}

// Register marks deviceID/fieldPath as self-initiated, returning the
// correlation id used for diagnostics.
func (t *IgnoreTable) Register(deviceID, fieldPath string) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	id := uuid.New()
	t.entries[IgnoreKey{DeviceID: deviceID, FieldPath: fieldPath}] = ignoreEntry{
		id:      id,
		expires: time.Now().Add(t.ttl),
	}
	return id
}

// Consume reports whether deviceID/fieldPath has a live, unexpired
// ignore entry, removing it on a hit (spec.md §4.5: "consumed — removed
// after first hit or TTL"). Server-derived fields always return false:
// they are never suppressed regardless of table contents.
func (t *IgnoreTable) Consume(deviceID, fieldPath string) bool {
	if serverDerivedFields[fieldPath] {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	key := IgnoreKey{DeviceID: deviceID, FieldPath: fieldPath}
	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	delete(t.entries, key)
	return time.Now().Before(entry.expires)
}

// sweep drops expired entries that were never echoed back; called
// opportunistically by Register to keep the table bounded without a
// background goroutine.
func (t *IgnoreTable) sweep() {
	now := time.Now()
	for k, e := range t.entries {
		if now.After(e.expires) {
			delete(t.entries, k)
		}
	}
}
