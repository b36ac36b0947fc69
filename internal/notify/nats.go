package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBridge mirrors message-channel notifications onto a NATS
// subject, for deployments that want fan-out beyond a single process.
// Off by default; Hub only calls Publish when a bridge is configured.
// Grounded on the teacher's NATSPublisher (internal/nvr/nats_publisher.go).
type NATSBridge struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

// NewNATSBridge wraps an already-connected *nats.Conn.
func NewNATSBridge(conn *nats.Conn, subject string, maxRetries int) *NATSBridge {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &NATSBridge{conn: conn, subject: subject, maxRetries: maxRetries}
}

// Publish marshals msg and publishes it with a short linear backoff
// retry, logging (not returning) a final failure since Bridge.Publish
// has no error return — the reader task must not be held up by a
// downstream NATS outage.
func (b *NATSBridge) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("notify: nats bridge marshal error: %v", err)
		return
	}

	var lastErr error
	for i := 0; i <= b.maxRetries; i++ {
		if lastErr = b.conn.Publish(b.subject, data); lastErr == nil {
			return
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	log.Printf("notify: nats bridge publish failed after %d retries: %v", b.maxRetries, lastErr)
}
