package protect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/config"
	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/mutation"
	"github.com/lumenvue/protectclient/internal/notify"
)

const testCameraID = "61ddb66b018e2703e7008c19"

func testBootstrapBytes() []byte {
	return []byte(fmt.Sprintf(`{
		"nvr": {"id":"nvr1","mac":"aabbccddeeff","modelKey":"nvr","state":"connected","name":"Home NVR","host":"10.0.0.1","version":"4.0.0","timezone":"UTC"},
		"cameras": [
			{"id":%q,"mac":"aabbccddeeff","modelKey":"camera","state":"connected","name":"Front Door"}
		],
		"lastUpdateId": "100"
	}`, testCameraID))
}

// newTestClient builds a Client with its non-network collaborators
// wired, skipping httpapi/wsconn construction — this exercises the
// bootstrap-load wiring (onBootstrap) the same way Connect's callback
// does, without a real controller.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := &Client{
		hub:     notify.NewHub(nil),
		ignore:  mutation.NewIgnoreTable(2 * time.Second),
		buffer:  mutation.NewBuffer(),
		parsers: cache.NewParsers(64),
		cfg:     config.Config{RingResetTimeout: 3 * time.Second},
	}
	c.onBootstrap(testBootstrapBytes())
	return c
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(config.Config{})
	if err == nil {
		t.Fatal("expected an error for a config with no Address")
	}
	if _, ok := err.(*StateError); !ok {
		t.Fatalf("expected a *StateError, got %T: %v", err, err)
	}
}

func TestOnBootstrap_LoadsGraphAndPublishesReset(t *testing.T) {
	c := newTestClient(t)

	var states []string
	sub := c.SubscribeState()
	defer sub.Unsubscribe()

	// Reset is published synchronously inside onBootstrap, before
	// SubscribeState was registered here, so trigger a second load to
	// observe it.
	c.onBootstrap(testBootstrapBytes())

	select {
	case s := <-sub.C():
		states = append(states, s)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reset state notification")
	}
	if len(states) != 1 || states[0] != "reset" {
		t.Fatalf("expected a single reset notification, got %v", states)
	}

	b := c.Bootstrap()
	if b.Camera(testCameraID) == nil {
		t.Fatal("expected the fixture camera to be loaded")
	}
}

func TestSetCameraRecordingMode_UnknownCameraIsNotFound(t *testing.T) {
	c := newTestClient(t)
	err := c.SetCameraRecordingMode(context.Background(), "does-not-exist", model.RecordingAlways)
	if err == nil {
		t.Fatal("expected an error for an unknown camera id")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected a *NotFoundError, got %T: %v", err, err)
	}
}

func TestSetCameraRecordingMode_NotConnectedSurfacesStateError(t *testing.T) {
	c := &Client{}
	err := c.SetCameraRecordingMode(context.Background(), testCameraID, model.RecordingAlways)
	if _, ok := err.(*StateError); !ok {
		t.Fatalf("expected a *StateError when no bootstrap has loaded, got %T: %v", err, err)
	}
}

func TestValidateRecordingMode(t *testing.T) {
	if err := ValidateRecordingMode(model.RecordingAlways); err != nil {
		t.Fatalf("expected RecordingAlways to validate, got %v", err)
	}
	if err := ValidateRecordingMode(model.RecordingMode("bogus")); err == nil {
		t.Fatal("expected an unknown recording mode to fail validation")
	}
}
