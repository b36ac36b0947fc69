package diff

import "testing"

func TestDivergenceTracker_ThresholdWithinWindow(t *testing.T) {
	d := newDivergenceTracker()
	for i := 0; i < divergenceThreshold-1; i++ {
		if d.Record() {
			t.Fatalf("expected no trip before threshold, tripped at hit %d", i+1)
		}
	}
	if !d.Record() {
		t.Fatal("expected trip on the Nth hit")
	}
}

func TestDivergenceTracker_SingleHitDoesNotTrip(t *testing.T) {
	d := newDivergenceTracker()
	if d.Record() {
		t.Fatal("expected a single hit to not trip the threshold")
	}
}
