package wsconn

import (
	"math/rand"
	"time"
)

// backoff computes the reconnect delay sequence from spec.md §4.3: base
// 1s, cap 60s, doubling, ±20% jitter. Grounded on the teacher's
// NVRMonitor auth-backoff cache idiom (internal/nvr/monitor.go),
// generalized from a one-shot release-time check into a repeatable
// doubling sequence.
type backoff struct {
	base    time.Duration
	cap     time.Duration
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{base: time.Second, cap: 60 * time.Second, current: time.Second}
}

// Next returns the delay for this attempt and advances the sequence.
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.cap {
		b.current = b.cap
	}
	return jitter(d)
}

// Reset restarts the sequence at base, called after a successful
// connect.
func (b *backoff) Reset() { b.current = b.base }

func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	delta := (rand.Float64()*2 - 1) * spread
	return d + time.Duration(delta)
}
