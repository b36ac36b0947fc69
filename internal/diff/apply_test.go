package diff

import (
	"fmt"
	"testing"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/mutation"
	"github.com/lumenvue/protectclient/internal/notify"
	"github.com/lumenvue/protectclient/internal/wire"
)

const testCameraID = "61ddb66b018e2703e7008c19"

func testBootstrap(t *testing.T) *model.Bootstrap {
	t.Helper()
	raw := []byte(fmt.Sprintf(`{
		"nvr": {"id":"nvr1","mac":"aabbccddeeff","modelKey":"nvr","state":"connected","name":"Home NVR","host":"10.0.0.1","version":"4.0.0","timezone":"UTC"},
		"cameras": [
			{"id":%q,"mac":"aabbccddeeff","modelKey":"camera","state":"connected","name":"Front Door"}
		],
		"lastUpdateId": "100"
	}`, testCameraID))
	b, err := model.ParseBootstrap(raw, cache.NewParsers(64))
	if err != nil {
		t.Fatalf("ParseBootstrap: %v", err)
	}
	return b
}

func newTestEngine(t *testing.T) (*Engine, *[]notify.Message) {
	t.Helper()
	b := testBootstrap(t)
	hub := notify.NewHub(nil)
	var received []notify.Message
	hub.Subscribe(func(m notify.Message) { received = append(received, m) })
	e := New(b, mutation.NewIgnoreTable(2*time.Second), hub, cache.NewParsers(64))
	return e, &received
}

func addEventPacket(updateID, eventID, eventType, cameraID string, startMs int64) *wire.Packet {
	payload := fmt.Sprintf(`{"id":%q,"type":%q,"camera":%q,"start":%d}`, eventID, eventType, cameraID, startMs)
	return &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionAdd, NewUpdateID: updateID, ModelKey: "event", ID: eventID},
		Payload: []byte(payload),
	}
}

func updateEventPacket(updateID, eventID string, endMs int64) *wire.Packet {
	payload := fmt.Sprintf(`{"end":%d}`, endMs)
	return &wire.Packet{
		Header: wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: updateID, ModelKey: "event", ID: eventID},
		Payload: []byte(payload),
	}
}

// Scenario 1: cold bootstrap, one motion event.
func TestApply_MotionEvent_TwoOrderedNotifications(t *testing.T) {
	e, received := newTestEngine(t)

	pkt := addEventPacket("101", "ev1", "motion", testCameraID, 1700000000000)
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ev := e.Bootstrap.Events["ev1"]
	if ev == nil {
		t.Fatal("expected event to be present in bootstrap.events")
	}
	cam := e.Bootstrap.Camera(testCameraID)
	if !cam.IsMotionDetected {
		t.Fatal("expected camera.is_motion_detected to be true")
	}
	if cam.LastMotion != 1700000000000 {
		t.Fatalf("expected last_motion set, got %d", cam.LastMotion)
	}

	msgs := *received
	if len(msgs) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].ModelKey != "event" || msgs[0].Action != wire.ActionAdd {
		t.Fatalf("expected first notification to be event-add, got %+v", msgs[0])
	}
	if msgs[1].ModelKey != "camera" || msgs[1].Action != wire.ActionUpdate {
		t.Fatalf("expected second notification to be camera-update, got %+v", msgs[1])
	}
	wantFields := map[string]bool{"isMotionDetected": true, "lastMotion": true}
	if len(msgs[1].ChangedFields) != 2 {
		t.Fatalf("expected 2 changed fields, got %v", msgs[1].ChangedFields)
	}
	for _, f := range msgs[1].ChangedFields {
		if !wantFields[f] {
			t.Fatalf("unexpected changed field %q", f)
		}
	}
	if e.Bootstrap.UpdateID() != "101" {
		t.Fatalf("expected last-update-id advanced, got %q", e.Bootstrap.UpdateID())
	}
}

// Scenario 2: motion end.
func TestApply_MotionEnd_ExactlyOneNotification(t *testing.T) {
	e, received := newTestEngine(t)
	if err := e.Apply(addEventPacket("101", "ev1", "motion", testCameraID, 1700000000000)); err != nil {
		t.Fatalf("Apply add: %v", err)
	}
	*received = nil

	if err := e.Apply(updateEventPacket("102", "ev1", 1700000005000)); err != nil {
		t.Fatalf("Apply update: %v", err)
	}

	cam := e.Bootstrap.Camera(testCameraID)
	if cam.IsMotionDetected {
		t.Fatal("expected camera flag reset to false")
	}
	if cam.LastMotionEnd != 1700000005000 {
		t.Fatalf("expected last_motion_end set, got %d", cam.LastMotionEnd)
	}
	ev := e.Bootstrap.Events["ev1"]
	if ev.Active() {
		t.Fatal("expected event to be inactive")
	}

	msgs := *received
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one notification, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].ModelKey != "camera" {
		t.Fatalf("expected the one notification to be the camera update, got %+v", msgs[0])
	}
}

// Scenario 3: self-echo suppression.
func TestApply_EchoSuppression_FilteredFieldNotNotified(t *testing.T) {
	e, received := newTestEngine(t)
	e.Ignore.Register(testCameraID, "name")

	pkt := &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: "101", ModelKey: "camera", ID: testCameraID},
		Payload: []byte(`{"name":"Back Door"}`),
	}
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	cam := e.Bootstrap.Camera(testCameraID)
	if cam.Name != "Back Door" {
		t.Fatal("expected the value to still be applied despite suppression")
	}
	if len(*received) != 0 {
		t.Fatalf("expected no notification for a fully-suppressed change, got %+v", *received)
	}
}

// Scenario 4: reconnect replay, exact duplicate dropped.
func TestApply_DuplicateLastUpdateID_Dropped(t *testing.T) {
	e, received := newTestEngine(t)

	pkt := &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: "101", ModelKey: "camera", ID: testCameraID},
		Payload: []byte(`{"name":"Back Door"}`),
	}
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	*received = nil

	// Replayed exact duplicate after reconnect.
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply (replay): %v", err)
	}
	if len(*received) != 0 {
		t.Fatalf("expected duplicate packet to produce no notification, got %+v", *received)
	}

	pkt2 := &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: "102", ModelKey: "camera", ID: testCameraID},
		Payload: []byte(`{"name":"Side Door"}`),
	}
	if err := e.Apply(pkt2); err != nil {
		t.Fatalf("Apply (X+1): %v", err)
	}
	if len(*received) != 1 {
		t.Fatalf("expected exactly one notification for the X+1 packet, got %+v", *received)
	}
}

func TestApply_RemoveUnknownID_FlagsDivergence(t *testing.T) {
	b := testBootstrap(t)
	hub := notify.NewHub(nil)
	e := New(b, mutation.NewIgnoreTable(2*time.Second), hub, cache.NewParsers(64))
	var diverged int
	e.OnDivergence = func() { diverged++ }

	for i := 0; i < divergenceThreshold; i++ {
		pkt := &wire.Packet{
			Header: wire.ActionHeader{Action: wire.ActionRemove, NewUpdateID: fmt.Sprintf("%d", 200+i), ModelKey: "camera", ID: "unknown-id"},
		}
		if err := e.Apply(pkt); err != nil {
			t.Fatalf("Apply remove #%d: %v", i, err)
		}
	}
	if diverged != 1 {
		t.Fatalf("expected OnDivergence to fire exactly once at the threshold, got %d", diverged)
	}
}

func TestApply_RingEvent_AutoResetFiresWithoutEndPacket(t *testing.T) {
	e, received := newTestEngine(t)
	e.RingResetTimeout = 20 * time.Millisecond

	if err := e.Apply(addEventPacket("101", "ev-ring", "ring", testCameraID, 1700000000000)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !e.Bootstrap.Camera(testCameraID).IsRinging {
		t.Fatal("expected is_ringing true immediately after the ring event")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !e.Bootstrap.Camera(testCameraID).IsRinging {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if e.Bootstrap.Camera(testCameraID).IsRinging {
		t.Fatal("expected the auto-reset timer to have cleared is_ringing")
	}

	found := false
	for _, m := range *received {
		if m.ModelKey == "camera" && len(m.ChangedFields) == 1 && m.ChangedFields[0] == "isRinging" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a camera-update notification for the auto-reset")
	}
}

// Invariant 4: a transition to disconnected clears volatile telemetry
// while retaining configuration.
func TestApply_DisconnectTransition_ClearsVolatileKeepsConfig(t *testing.T) {
	e, _ := newTestEngine(t)

	cam := e.Bootstrap.Camera(testCameraID)
	cam.IsMotionDetected = true
	cam.IsRinging = true
	cam.IsSmartDetected = true
	cam.CurrentResolutionIdx = 2
	cam.Stats = map[string]any{"rxBytes": 123}

	pkt := &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: "101", ModelKey: "camera", ID: testCameraID},
		Payload: []byte(`{"state":"disconnected"}`),
	}
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	cam = e.Bootstrap.Camera(testCameraID)
	if cam.Name != "Front Door" {
		t.Fatalf("expected configuration field name to survive, got %q", cam.Name)
	}
	if cam.IsMotionDetected || cam.IsRinging || cam.IsSmartDetected {
		t.Fatalf("expected derived flags cleared, got motion=%v ringing=%v smart=%v",
			cam.IsMotionDetected, cam.IsRinging, cam.IsSmartDetected)
	}
	if cam.CurrentResolutionIdx != 0 || cam.Stats != nil {
		t.Fatalf("expected telemetry cleared, got resolution=%d stats=%v", cam.CurrentResolutionIdx, cam.Stats)
	}
}

// Invariant 1 / scenario 6: a chime's camera-id reference that doesn't
// (yet) resolve to an adopted camera is retained, not dropped.
func TestApply_ChimeReferencesUnresolvedCamera_Retained(t *testing.T) {
	raw := []byte(fmt.Sprintf(`{
		"nvr": {"id":"nvr1","mac":"aabbccddeeff","modelKey":"nvr","state":"connected","name":"Home NVR","host":"10.0.0.1","version":"4.0.0","timezone":"UTC"},
		"cameras": [
			{"id":%q,"mac":"aabbccddeeff","modelKey":"camera","state":"connected","name":"Front Door"}
		],
		"chimes": [
			{"id":"chime1","mac":"1122334455ff","modelKey":"chime","state":"connected","name":"Front Chime","cameraIds":[%q]}
		],
		"lastUpdateId": "100"
	}`, testCameraID, testCameraID))
	b, err := model.ParseBootstrap(raw, cache.NewParsers(64))
	if err != nil {
		t.Fatalf("ParseBootstrap: %v", err)
	}
	hub := notify.NewHub(nil)
	e := New(b, mutation.NewIgnoreTable(2*time.Second), hub, cache.NewParsers(64))

	pkt := &wire.Packet{
		Header:  wire.ActionHeader{Action: wire.ActionUpdate, NewUpdateID: "101", ModelKey: "chime", ID: "chime1"},
		Payload: []byte(fmt.Sprintf(`{"cameraIds":[%q,"not-yet-adopted-cam"]}`, testCameraID)),
	}
	if err := e.Apply(pkt); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	chime := e.Bootstrap.Chimes["chime1"]
	if len(chime.CameraIDs) != 2 || chime.CameraIDs[1] != "not-yet-adopted-cam" {
		t.Fatalf("expected the unresolved camera id to be retained, got %v", chime.CameraIDs)
	}
}
