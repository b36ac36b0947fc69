package diff

import (
	"sync"
	"time"
)

// divergenceWindow is how far back unknown-id inconsistencies are
// counted (spec.md §4.2: "≥ N ... within a window").
const divergenceWindow = time.Minute

// divergenceThreshold is N from spec.md §4.2's unrecoverable-divergence
// rule, default 3.
const divergenceThreshold = 3

// divergenceTracker counts recent "remove referenced an unknown id"
// inconsistencies, signaling a full re-bootstrap once the threshold is
// reached within the window. Grounded on the teacher's NVRMonitor
// sync.Map status-cache idiom (internal/nvr/monitor.go), adapted from a
// per-id backoff cache into a sliding-window event counter.
type divergenceTracker struct {
	mu   sync.Mutex
	hits []time.Time
}

func newDivergenceTracker() *divergenceTracker {
	return &divergenceTracker{}
}

// Record logs one inconsistency and reports whether the count within
// the window has now reached the threshold. Every further hit inside
// the window reports true as well.
func (d *divergenceTracker) Record() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-divergenceWindow)
	kept := d.hits[:0]
	for _, t := range d.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	d.hits = kept

	return len(d.hits) >= divergenceThreshold
}
