package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_RegistersDistinctRegistry(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	if a.Registry() == b.Registry() {
		t.Fatal("expected each Collector to own a private registry, not share prometheus.DefaultRegisterer")
	}
	if a.Registry() == prometheus.DefaultRegisterer {
		t.Fatal("expected Collector to avoid the global default registry")
	}
}

func TestObservePacketApplied_IncrementsByLabel(t *testing.T) {
	c := NewCollector()
	c.ObservePacketApplied("camera", "update")
	c.ObservePacketApplied("camera", "update")
	c.ObservePacketApplied("sensor", "add")

	if got := testutil.ToFloat64(c.packetsApplied.WithLabelValues("camera", "update")); got != 2 {
		t.Fatalf("expected 2 camera/update applies, got %v", got)
	}
	if got := testutil.ToFloat64(c.packetsApplied.WithLabelValues("sensor", "add")); got != 1 {
		t.Fatalf("expected 1 sensor/add apply, got %v", got)
	}
}

func TestObservePacketDropped_ByReason(t *testing.T) {
	c := NewCollector()
	c.ObservePacketDropped("stale-update-id")
	if got := testutil.ToFloat64(c.packetsDropped.WithLabelValues("stale-update-id")); got != 1 {
		t.Fatalf("expected 1 drop for stale-update-id, got %v", got)
	}
}

func TestObserveReconnectAndEchoSuppression(t *testing.T) {
	c := NewCollector()
	c.ObserveReconnect()
	c.ObserveReconnect()
	c.ObserveEchoSuppression()

	if got := testutil.ToFloat64(c.reconnects); got != 2 {
		t.Fatalf("expected 2 reconnects, got %v", got)
	}
	if got := testutil.ToFloat64(c.echoSuppressions); got != 1 {
		t.Fatalf("expected 1 echo suppression, got %v", got)
	}
}

func TestObserveSessionState_OneHot(t *testing.T) {
	c := NewCollector()
	known := []string{"disconnected", "connecting", "connected", "reconnecting"}

	c.ObserveSessionState("connecting", known)
	if got := testutil.ToFloat64(c.sessionState.WithLabelValues("connecting")); got != 1 {
		t.Fatalf("expected connecting=1, got %v", got)
	}
	if got := testutil.ToFloat64(c.sessionState.WithLabelValues("connected")); got != 0 {
		t.Fatalf("expected connected=0, got %v", got)
	}

	c.ObserveSessionState("connected", known)
	if got := testutil.ToFloat64(c.sessionState.WithLabelValues("connecting")); got != 0 {
		t.Fatalf("expected connecting cleared to 0 after transition, got %v", got)
	}
	if got := testutil.ToFloat64(c.sessionState.WithLabelValues("connected")); got != 1 {
		t.Fatalf("expected connected=1 after transition, got %v", got)
	}
}

func TestObserveWSFrameBytes_Observed(t *testing.T) {
	c := NewCollector()
	c.ObserveWSFrameBytes(128)
	c.ObserveWSFrameBytes(4096)

	if got := testutil.CollectAndCount(c.wsFrameBytes); got != 1 {
		t.Fatalf("expected a single histogram metric family, got %d", got)
	}
}

func TestGatherIncludesAllMetricNames(t *testing.T) {
	c := NewCollector()
	c.ObservePacketApplied("camera", "update")
	c.ObserveReconnect()
	c.ObserveDivergenceEvent()

	mfs, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"protectclient_packets_applied_total",
		"protectclient_reconnects_total",
		"protectclient_divergence_events_total",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected gathered metric families to include %q, got %q", want, joined)
		}
	}
}
