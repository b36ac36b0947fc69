// Package notify implements the two subscription channels the client
// exposes: a bounded state-transition channel and an ordered,
// synchronous-dispatch message channel (spec.md §4.6).
package notify

import (
	"log"
	"sync"

	"github.com/lumenvue/protectclient/internal/wire"
)

// Action mirrors wire.Action for notify consumers that don't otherwise
// depend on internal/wire.
type Action = wire.Action

// Message is one applied-packet notification: the object that changed
// (an opaque ref, since notify doesn't depend on internal/model to
// avoid an import cycle with the diff engine), its changed-field set,
// and the raw packet for advanced consumers.
type Message struct {
	Action        Action
	ModelKey      string
	ObjectID      string
	ChangedFields []string
	Raw           *wire.Packet
}

// maxPendingStateMessages is the state channel's per-subscriber buffer
// size; a state published while a subscriber's buffer is full is
// dropped for that subscriber.
const maxPendingStateMessages = 100

// StateSubscription is returned by SubscribeState; Unsubscribe is
// idempotent.
type StateSubscription struct {
	ch   chan string
	hub  *Hub
	once sync.Once
}

func (s *StateSubscription) C() <-chan string { return s.ch }

func (s *StateSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.removeState(s)
	})
}

// MessageSubscription is returned by Subscribe; Unsubscribe is
// idempotent.
type MessageSubscription struct {
	fn   func(Message)
	hub  *Hub
	once sync.Once
}

func (s *MessageSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.removeMessage(s)
	})
}

// Bridge is an optional external fan-out for message notifications
// (e.g. the NATS bridge in internal/notify/nats.go). Publish must not
// block the reader for long; implementations are expected to use their
// own internal queuing/retry.
type Bridge interface {
	Publish(Message)
}

// Hub fans out state transitions and applied-packet messages to
// subscribers. All dispatch happens synchronously on the caller's
// goroutine (the reader task), per spec.md §4.6 — subscribers must not
// block.
type Hub struct {
	mu       sync.Mutex
	states   []*StateSubscription
	messages []*MessageSubscription
	bridge   Bridge
}

// NewHub builds an empty Hub. bridge may be nil.
func NewHub(bridge Bridge) *Hub {
	return &Hub{bridge: bridge}
}

// SubscribeState registers a new state-transition subscriber.
func (h *Hub) SubscribeState() *StateSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &StateSubscription{ch: make(chan string, maxPendingStateMessages), hub: h}
	h.states = append(h.states, sub)
	return sub
}

// PublishState fans a state-transition string out to every subscriber
// without blocking the caller. A subscriber whose channel is full does
// not receive this state (a warning is logged); it stays subscribed and
// is not closed or removed.
func (h *Hub) PublishState(state string) {
	h.mu.Lock()
	subs := append([]*StateSubscription(nil), h.states...)
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- state:
		default:
			log.Printf("notify: state subscriber backlog exceeded %d, dropping %q", maxPendingStateMessages, state)
		}
	}
}

func (h *Hub) removeState(target *StateSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.states[:0]
	for _, s := range h.states {
		if s != target {
			out = append(out, s)
		}
	}
	h.states = out
	close(target.ch)
}

// Subscribe registers a new message subscriber, invoked synchronously
// in apply order from the reader task.
func (h *Hub) Subscribe(fn func(Message)) *MessageSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &MessageSubscription{fn: fn, hub: h}
	h.messages = append(h.messages, sub)
	return sub
}

// PublishMessage dispatches msg, in order, to every current subscriber,
// then to the optional bridge. Copy-on-iterate: a subscriber added or
// removed mid-dispatch doesn't affect this call's fan-out list (spec.md
// §5: "subscription lists are append-only-under-lock with
// copy-on-iterate semantics").
func (h *Hub) PublishMessage(msg Message) {
	h.mu.Lock()
	subs := append([]*MessageSubscription(nil), h.messages...)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
	if h.bridge != nil {
		h.bridge.Publish(msg)
	}
}

func (h *Hub) removeMessage(target *MessageSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.messages[:0]
	for _, s := range h.messages {
		if s != target {
			out = append(out, s)
		}
	}
	h.messages = out
}

// Reset publishes the synthetic "reset" state required before any new
// object notifications following a full re-bootstrap (spec.md §8).
func (h *Hub) Reset() {
	h.PublishState("reset")
}
