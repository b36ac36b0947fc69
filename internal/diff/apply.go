// Package diff implements the differential update pipeline: decode
// (internal/wire) → apply → derive events → notify (internal/notify).
// It is the single writer of a model.Bootstrap, invoked from the
// WebSocket reader task (internal/wsconn).
package diff

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/mutation"
	"github.com/lumenvue/protectclient/internal/notify"
	"github.com/lumenvue/protectclient/internal/wire"
)

// defaultRingResetTimeout is the heuristic reset applied when a `ring`
// event never receives an end packet (some firmware omits it).
const defaultRingResetTimeout = 3 * time.Second

// Engine owns a Bootstrap and applies decoded packets to it one at a
// time, deriving camera/device-level flags from events and publishing
// ordered notifications. Not safe for concurrent Apply calls — the
// caller (internal/wsconn's reader loop) is the single writer.
type Engine struct {
	Bootstrap *model.Bootstrap
	Ignore    *mutation.IgnoreTable
	Hub       *notify.Hub
	Parsers   *cache.Parsers

	// RingResetTimeout overrides defaultRingResetTimeout when positive.
	RingResetTimeout time.Duration

	// OnDivergence is invoked once the sliding-window unknown-id
	// inconsistency count crosses the threshold, signaling the caller
	// should trigger a full re-bootstrap. May be nil.
	OnDivergence func()

	divergence *divergenceTracker

	timersMu   sync.Mutex
	ringTimers map[string]*time.Timer
}

// New builds an Engine over an already-populated Bootstrap.
func New(b *model.Bootstrap, ignore *mutation.IgnoreTable, hub *notify.Hub, parsers *cache.Parsers) *Engine {
	return &Engine{
		Bootstrap:  b,
		Ignore:     ignore,
		Hub:        hub,
		Parsers:    parsers,
		divergence: newDivergenceTracker(),
		ringTimers: make(map[string]*time.Timer),
	}
}

// Close stops any pending ring-reset timers. Call when tearing down
// the connection that owns this Engine.
func (e *Engine) Close() {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	for _, t := range e.ringTimers {
		t.Stop()
	}
	e.ringTimers = make(map[string]*time.Timer)
}

// Apply decodes pkt's effect onto the bootstrap graph and publishes
// the resulting notifications, in order. Stale or exactly-duplicated
// packets (idempotency, spec.md §4.2 step 1) are dropped silently.
//
// The mutate-and-build-messages phase runs under Bootstrap.Lock; the
// lock is released before any Hub.PublishMessage call, since
// subscriber callbacks run synchronously on this goroutine and may
// call back into Bootstrap's RLock-guarded accessors — sync.RWMutex is
// not reentrant, so publishing while still holding the write lock
// would deadlock.
func (e *Engine) Apply(pkt *wire.Packet) error {
	if !idAtLeast(pkt.Header.NewUpdateID, e.Bootstrap.UpdateID()) {
		return nil
	}

	e.Bootstrap.Lock()
	msgs, divergent, err := e.applyLocked(pkt)
	if err == nil {
		e.Bootstrap.LastUpdateID = pkt.Header.NewUpdateID
	}
	e.Bootstrap.Unlock()

	if err != nil {
		return err
	}

	if divergent && e.divergence.Record() && e.OnDivergence != nil {
		e.OnDivergence()
	}
	for _, m := range msgs {
		e.Hub.PublishMessage(m)
	}
	return nil
}

// applyLocked dispatches by model-key. Returns the ordered
// notifications to publish once unlocked, and whether this packet was
// a "remove referenced an unknown id" inconsistency (divergence
// signal, spec.md §4.2).
func (e *Engine) applyLocked(pkt *wire.Packet) ([]notify.Message, bool, error) {
	switch model.ModelKey(pkt.Header.ModelKey) {
	case model.ModelEvent:
		return e.applyEventLocked(pkt)
	case model.ModelNVR:
		return e.applyNVRLocked(pkt)
	case model.ModelCamera:
		return applyDeviceMap(e.Bootstrap.Cameras, pkt, model.ModelCamera, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelLight:
		return applyDeviceMap(e.Bootstrap.Lights, pkt, model.ModelLight, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelSensor:
		return applyDeviceMap(e.Bootstrap.Sensors, pkt, model.ModelSensor, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelViewer:
		return applyDeviceMap(e.Bootstrap.Viewers, pkt, model.ModelViewer, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelChime:
		return applyDeviceMap(e.Bootstrap.Chimes, pkt, model.ModelChime, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelDoorlock:
		return applyDeviceMap(e.Bootstrap.Doorlocks, pkt, model.ModelDoorlock, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelBridge:
		return applyDeviceMap(e.Bootstrap.Bridges, pkt, model.ModelBridge, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelLiveview:
		return applyDeviceMap(e.Bootstrap.Liveviews, pkt, model.ModelLiveview, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelKeyring:
		return applyDeviceMap(e.Bootstrap.Keyrings, pkt, model.ModelKeyring, e.Ignore, e.Bootstrap, e.Parsers)
	case model.ModelUlpUser:
		return applyDeviceMap(e.Bootstrap.UlpUsers, pkt, model.ModelUlpUser, e.Ignore, e.Bootstrap, e.Parsers)
	default:
		return nil, false, &wire.ProtocolError{Reason: fmt.Sprintf("unknown model key %q", pkt.Header.ModelKey)}
	}
}

// applyNVRLocked handles the one-and-only NVR object, which has no
// add/remove lifecycle of its own once loaded.
func (e *Engine) applyNVRLocked(pkt *wire.Packet) ([]notify.Message, bool, error) {
	if wire.Action(pkt.Header.Action) != wire.ActionUpdate {
		log.Printf("diff: unsupported nvr action %q, ignoring", pkt.Header.Action)
		return nil, false, nil
	}
	if e.Bootstrap.NVR == nil {
		return nil, false, fmt.Errorf("diff: nvr update with no nvr loaded")
	}
	changed, err := model.UpdateInPlace(e.Bootstrap.NVR, pkt.Payload, e.Parsers)
	if err != nil {
		return nil, false, err
	}
	fields := filterIgnored(e.Ignore, pkt.Header.ID, changed)
	if len(fields) == 0 {
		return nil, false, nil
	}
	return []notify.Message{{
		Action:        notify.Action(wire.ActionUpdate),
		ModelKey:      string(model.ModelNVR),
		ObjectID:      pkt.Header.ID,
		ChangedFields: fields,
		Raw:           pkt,
	}}, false, nil
}

// devicePtr constrains applyDeviceMap to a pointer type that is both
// addressable via new(T) and satisfies model.Device.
type devicePtr[T any] interface {
	*T
	model.Device
}

// applyDeviceMap runs the generic add/update/remove algorithm (spec.md
// §4.2 step 2) against one device kind's map, shared across all ten
// device variants via Go generics rather than ten hand-written copies.
func applyDeviceMap[T any, PT devicePtr[T]](
	m map[string]PT,
	pkt *wire.Packet,
	modelKey model.ModelKey,
	ignore *mutation.IgnoreTable,
	bootstrap *model.Bootstrap,
	parsers *cache.Parsers,
) ([]notify.Message, bool, error) {
	id := pkt.Header.ID

	switch wire.Action(pkt.Header.Action) {
	case wire.ActionAdd:
		dev, err := model.NewDevice(modelKey, pkt.Payload, parsers)
		if err != nil {
			return nil, false, err
		}
		pt, ok := dev.(PT)
		if !ok {
			return nil, false, fmt.Errorf("diff: decoded %s is not the expected type", modelKey)
		}
		if _, exists := m[id]; exists {
			log.Printf("diff: add for already-present %s id=%s, overwriting", modelKey, id)
		}
		model.AttachBootstrap(pt, bootstrap)
		m[id] = pt
		validateCameraReferences(pt, bootstrap)
		return []notify.Message{{
			Action:   notify.Action(wire.ActionAdd),
			ModelKey: string(modelKey),
			ObjectID: id,
			Raw:      pkt,
		}}, false, nil

	case wire.ActionUpdate:
		pt, exists := m[id]
		if !exists {
			log.Printf("diff: update for unknown %s id=%s, ignoring", modelKey, id)
			return nil, false, nil
		}
		changed, err := model.UpdateInPlace(pt, pkt.Payload, parsers)
		if err != nil {
			return nil, false, err
		}
		if transitionedToDisconnected(changed, pt.CommonHeader().State) {
			pt.ClearVolatile()
		}
		validateCameraReferences(pt, bootstrap)
		fields := filterIgnored(ignore, id, changed)
		if len(fields) == 0 {
			return nil, false, nil
		}
		return []notify.Message{{
			Action:        notify.Action(wire.ActionUpdate),
			ModelKey:      string(modelKey),
			ObjectID:      id,
			ChangedFields: fields,
			Raw:           pkt,
		}}, false, nil

	case wire.ActionRemove:
		if _, exists := m[id]; !exists {
			log.Printf("diff: remove for unknown %s id=%s, flagging divergence", modelKey, id)
			return nil, true, nil
		}
		delete(m, id)
		return []notify.Message{{
			Action:   notify.Action(wire.ActionRemove),
			ModelKey: string(modelKey),
			ObjectID: id,
			Raw:      pkt,
		}}, false, nil

	default:
		return nil, false, &wire.ProtocolError{Reason: fmt.Sprintf("unknown action %q", pkt.Header.Action)}
	}
}

// transitionedToDisconnected reports whether this update's changed-field
// set carries the device's state to disconnected, the trigger for
// invariant 4's "clear volatile telemetry, keep configuration" rule.
func transitionedToDisconnected(changed []model.ChangedField, state model.DeviceState) bool {
	if state != model.StateDisconnected {
		return false
	}
	for _, c := range changed {
		if c == "state" {
			return true
		}
	}
	return false
}

// cameraReferencer is implemented by device variants that bind to one or
// more cameras by id (Chime, Light). Asserted against dynamically since
// applyDeviceMap is generic over model.Device, which carries no such
// method.
type cameraReferencer interface {
	ReferencedCameraIDs() []string
}

// validateCameraReferences logs a warning for any camera id pt references
// that isn't (yet) present in bootstrap.Cameras, without removing it —
// invariant 1 requires the reference survive an out-of-order arrival
// (spec.md §8 scenario 6).
func validateCameraReferences(pt model.Device, bootstrap *model.Bootstrap) {
	ref, ok := pt.(cameraReferencer)
	if !ok {
		return
	}
	for _, camID := range ref.ReferencedCameraIDs() {
		if camID == "" {
			continue
		}
		if _, exists := bootstrap.Cameras[camID]; !exists {
			log.Printf("diff: %s %s references unresolved camera id=%s, retaining",
				pt.CommonHeader().ModelKey, pt.CommonHeader().ID, camID)
		}
	}
}

// filterIgnored drops any changed field with a live echo-suppression
// entry, converting the rest to the plain-string form notify.Message
// carries (spec.md §4.5: filtered fields stay applied, just unnotified).
func filterIgnored(ignore *mutation.IgnoreTable, deviceID string, changed []model.ChangedField) []string {
	out := make([]string, 0, len(changed))
	for _, c := range changed {
		if ignore.Consume(deviceID, string(c)) {
			continue
		}
		out = append(out, string(c))
	}
	return out
}
