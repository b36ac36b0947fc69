package notify

import (
	"testing"
	"time"
)

func TestHub_MessageOrderAndUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	var got []string
	sub := hub.Subscribe(func(m Message) { got = append(got, m.ObjectID) })

	hub.PublishMessage(Message{ObjectID: "a"})
	hub.PublishMessage(Message{ObjectID: "b"})
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent, must not panic
	hub.PublishMessage(Message{ObjectID: "c"})

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestHub_StateBackpressureDropsRatherThanBlocks(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.SubscribeState()

	for i := 0; i < maxPendingStateMessages+10; i++ {
		hub.PublishState("connected")
	}

	select {
	case <-sub.C():
	default:
		t.Fatal("expected at least one buffered state message")
	}
}

func TestHub_StateUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.SubscribeState()
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected closed channel to yield zero value with ok=false")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out reading from closed channel")
	}
}
