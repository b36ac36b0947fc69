package wsconn

import "testing"

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := newBackoff()
	b.base = 100 // nanoseconds, just to keep the test fast-ish; cap scales too
	b.cap = 800
	b.current = b.base

	var last float64
	for i := 0; i < 10; i++ {
		prev := b.current
		d := b.Next()
		want := prev * 2
		if want > b.cap {
			want = b.cap
		}
		if b.current != want {
			t.Fatalf("iteration %d: expected next base delay %v, got %v", i, want, b.current)
		}
		f := float64(d)
		if f > float64(b.cap)*1.2+1 {
			t.Fatalf("iteration %d: delay %v exceeds cap*1.2", i, d)
		}
		last = f
	}
	_ = last
}

func TestBackoff_ResetReturnsToBase(t *testing.T) {
	b := newBackoff()
	b.Next()
	b.Next()
	b.Reset()
	if b.current != b.base {
		t.Fatalf("expected current reset to base %v, got %v", b.base, b.current)
	}
}
