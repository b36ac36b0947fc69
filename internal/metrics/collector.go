// Package metrics exposes Prometheus collectors for the client's own
// operational counters. Adapted from the teacher's
// internal/metrics/collector.go: same private-registry construction
// shape (NewRegistry + MustRegister per field in the constructor), with
// the media-plane/SFU polling body replaced — there is no remote
// stats endpoint to scrape here, the client already owns every number
// it reports, so Observe* is called directly instead of from a periodic
// collect() loop. The only caller is the top-level protect package;
// ObserveEchoSuppression, ObserveHTTPRetry, ObserveWSFrameBytes and
// ObserveDivergenceEvent have no caller in this module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector aggregates the client's own operational metrics — distinct
// from UniFi Protect device telemetry, which is carried as plain
// struct fields in internal/model and never turned into Prometheus
// series by this package.
type Collector struct {
	registry *prometheus.Registry

	packetsApplied   *prometheus.CounterVec
	packetsDropped   *prometheus.CounterVec
	reconnects       prometheus.Counter
	echoSuppressions prometheus.Counter
	httpRetries      *prometheus.CounterVec
	wsFrameBytes     prometheus.Histogram
	divergenceEvents prometheus.Counter
	sessionState     *prometheus.GaugeVec
}

// NewCollector builds a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{registry: reg}

	c.packetsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protectclient_packets_applied_total",
		Help: "WebSocket packets successfully applied to the bootstrap graph, by model key and action.",
	}, []string{"model_key", "action"})
	reg.MustRegister(c.packetsApplied)

	c.packetsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protectclient_packets_dropped_total",
		Help: "WebSocket packets dropped without mutating the graph, by reason.",
	}, []string{"reason"})
	reg.MustRegister(c.packetsDropped)

	c.reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "protectclient_reconnects_total",
		Help: "WebSocket reconnect attempts initiated by the session state machine.",
	})
	reg.MustRegister(c.reconnects)

	c.echoSuppressions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "protectclient_echo_suppressions_total",
		Help: "Changed fields filtered out of a notification by the echo-suppression ignore table.",
	})
	reg.MustRegister(c.echoSuppressions)

	c.httpRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protectclient_http_retries_total",
		Help: "HTTP session retry attempts, by method.",
	}, []string{"method"})
	reg.MustRegister(c.httpRetries)

	c.wsFrameBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "protectclient_ws_frame_bytes",
		Help:    "Size distribution of decoded WebSocket frame payloads.",
		Buckets: prometheus.ExponentialBuckets(64, 4, 10),
	})
	reg.MustRegister(c.wsFrameBytes)

	c.divergenceEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "protectclient_divergence_events_total",
		Help: "Times the unknown-id divergence threshold was crossed, triggering a re-bootstrap.",
	})
	reg.MustRegister(c.divergenceEvents)

	c.sessionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "protectclient_session_state",
		Help: "1 for the session's current state, 0 for all others.",
	}, []string{"state"})
	reg.MustRegister(c.sessionState)

	return c
}

// Registry returns the private registry so the embedding application
// can expose it via promhttp.HandlerFor itself — this package has no
// HTTP server of its own (spec.md §1: the core has no HTTP surface).
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObservePacketApplied(modelKey, action string) {
	c.packetsApplied.WithLabelValues(modelKey, action).Inc()
}

func (c *Collector) ObservePacketDropped(reason string) {
	c.packetsDropped.WithLabelValues(reason).Inc()
}

func (c *Collector) ObserveReconnect() { c.reconnects.Inc() }

func (c *Collector) ObserveEchoSuppression() { c.echoSuppressions.Inc() }

func (c *Collector) ObserveHTTPRetry(method string) {
	c.httpRetries.WithLabelValues(method).Inc()
}

func (c *Collector) ObserveWSFrameBytes(n int) {
	c.wsFrameBytes.Observe(float64(n))
}

func (c *Collector) ObserveDivergenceEvent() { c.divergenceEvents.Inc() }

// ObserveSessionState sets the gauge for state to 1 and clears every
// other state in known to 0, so the series reads as a one-hot vector.
func (c *Collector) ObserveSessionState(state string, known []string) {
	for _, s := range known {
		if s == state {
			c.sessionState.WithLabelValues(s).Set(1)
		} else {
			c.sessionState.WithLabelValues(s).Set(0)
		}
	}
}
