package mutation

import (
	"testing"
	"time"
)

func TestIgnoreTable_ConsumeHitThenMiss(t *testing.T) {
	tbl := NewIgnoreTable(2 * time.Second)
	tbl.Register("cam1", "recordingSettings.mode")

	if !tbl.Consume("cam1", "recordingSettings.mode") {
		t.Fatal("expected first consume to hit")
	}
	if tbl.Consume("cam1", "recordingSettings.mode") {
		t.Fatal("expected entry to be removed after first hit")
	}
}

func TestIgnoreTable_ExpiresAfterTTL(t *testing.T) {
	tbl := NewIgnoreTable(10 * time.Millisecond)
	tbl.Register("cam1", "name")
	time.Sleep(30 * time.Millisecond)

	if tbl.Consume("cam1", "name") {
		t.Fatal("expected expired entry to not suppress")
	}
}

func TestIgnoreTable_ServerDerivedNeverSuppressed(t *testing.T) {
	tbl := NewIgnoreTable(time.Minute)
	tbl.Register("cam1", "lastSeen")

	if tbl.Consume("cam1", "lastSeen") {
		t.Fatal("lastSeen must never be suppressed even if registered")
	}
}
