package diff

import (
	"fmt"
	"log"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/notify"
	"github.com/lumenvue/protectclient/internal/wire"
)

// applyEventLocked handles the `event` model-key's special apply path
// (spec.md §4.2): events are first-class objects in their own right,
// but their add/update also derives camera/device-level flags.
//
// An add always notifies for the event itself, plus a derived
// device-update notification if the event's type drives one (scenario
// 1: two ordered notifications). An update's only externally visible
// effect is the derived device change — the event's own end-time
// mutation is internal bookkeeping, so it does not get a notification
// of its own (scenario 2: exactly one notification).
func (e *Engine) applyEventLocked(pkt *wire.Packet) ([]notify.Message, bool, error) {
	id := pkt.Header.ID

	switch wire.Action(pkt.Header.Action) {
	case wire.ActionAdd:
		ev, err := model.NewEvent(pkt.Payload, e.Parsers)
		if err != nil {
			return nil, false, err
		}
		ev.ID = id
		if _, exists := e.Bootstrap.Events[id]; exists {
			log.Printf("diff: add for already-present event id=%s, overwriting", id)
		}
		e.Bootstrap.Events[id] = ev

		msgs := []notify.Message{{
			Action:   notify.Action(wire.ActionAdd),
			ModelKey: string(model.ModelEvent),
			ObjectID: id,
			Raw:      pkt,
		}}
		if dm := e.deriveOnStart(ev); dm != nil {
			msgs = append(msgs, *dm)
		}
		return msgs, false, nil

	case wire.ActionUpdate:
		ev, exists := e.Bootstrap.Events[id]
		if !exists {
			log.Printf("diff: update for unknown event id=%s, ignoring", id)
			return nil, false, nil
		}
		wasActive := ev.Active()
		if _, err := model.ApplyEventUpdate(ev, pkt.Payload, e.Parsers); err != nil {
			return nil, false, err
		}

		var msgs []notify.Message
		if wasActive && !ev.Active() {
			if dm := e.deriveOnEnd(ev); dm != nil {
				msgs = append(msgs, *dm)
			}
		}
		return msgs, false, nil

	case wire.ActionRemove:
		if _, exists := e.Bootstrap.Events[id]; !exists {
			log.Printf("diff: remove for unknown event id=%s, flagging divergence", id)
			return nil, true, nil
		}
		delete(e.Bootstrap.Events, id)
		return []notify.Message{{
			Action:   notify.Action(wire.ActionRemove),
			ModelKey: string(model.ModelEvent),
			ObjectID: id,
			Raw:      pkt,
		}}, false, nil

	default:
		return nil, false, fmt.Errorf("diff: unknown action %q", pkt.Header.Action)
	}
}

// deriveOnStart applies an event's "started" side effect on its target
// camera (spec.md §4.2 bullet list), returning the device-update
// notification to publish, or nil if nothing actually changed (the
// camera is unknown, or the flags were already set).
func (e *Engine) deriveOnStart(ev *model.Event) *notify.Message {
	switch ev.Type {
	case model.EventMotion, model.EventSmartDetectZone, model.EventSmartDetectLine:
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil {
			return nil
		}
		var changed []string
		if !cam.IsMotionDetected {
			cam.IsMotionDetected = true
			changed = append(changed, "isMotionDetected")
		}
		if ms := cache.TimestampMillis(ev.Start); cam.LastMotion != ms {
			cam.LastMotion = ms
			changed = append(changed, "lastMotion")
		}
		if len(changed) == 0 {
			return nil
		}
		return deviceUpdateMessage(model.ModelCamera, cam.ID, changed)

	case model.EventRing:
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil {
			return nil
		}
		e.scheduleRingReset(ev.ID, ev.CameraID)
		if cam.IsRinging {
			return nil
		}
		cam.IsRinging = true
		return deviceUpdateMessage(model.ModelCamera, cam.ID, []string{"isRinging"})

	case model.EventSmartAudioDetect:
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil || cam.IsSmartDetected {
			return nil
		}
		cam.IsSmartDetected = true
		return deviceUpdateMessage(model.ModelCamera, cam.ID, []string{"isSmartDetected"})

	default:
		// nfcCardScanned, fingerprintIdentified, and the lifecycle
		// kinds (deviceConnected/deviceDisconnected/deviceAdopted)
		// carry no camera-flag derivation — they're recorded as
		// events and nothing else.
		return nil
	}
}

// deriveOnEnd applies an event's "ended" side effect (spec.md §4.2:
// "clear the derived flag ... update last_motion_end").
func (e *Engine) deriveOnEnd(ev *model.Event) *notify.Message {
	switch ev.Type {
	case model.EventMotion, model.EventSmartDetectZone, model.EventSmartDetectLine:
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil {
			return nil
		}
		var changed []string
		if cam.IsMotionDetected {
			cam.IsMotionDetected = false
			changed = append(changed, "isMotionDetected")
		}
		if ms := cache.TimestampMillis(ev.End); cam.LastMotionEnd != ms {
			cam.LastMotionEnd = ms
			changed = append(changed, "lastMotionEnd")
		}
		if len(changed) == 0 {
			return nil
		}
		return deviceUpdateMessage(model.ModelCamera, cam.ID, changed)

	case model.EventRing:
		e.cancelRingReset(ev.ID)
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil || !cam.IsRinging {
			return nil
		}
		cam.IsRinging = false
		return deviceUpdateMessage(model.ModelCamera, cam.ID, []string{"isRinging"})

	case model.EventSmartAudioDetect:
		cam := e.Bootstrap.Cameras[ev.CameraID]
		if cam == nil || !cam.IsSmartDetected {
			return nil
		}
		cam.IsSmartDetected = false
		return deviceUpdateMessage(model.ModelCamera, cam.ID, []string{"isSmartDetected"})

	default:
		return nil
	}
}

func deviceUpdateMessage(modelKey model.ModelKey, objectID string, changed []string) *notify.Message {
	return &notify.Message{
		Action:        notify.Action(wire.ActionUpdate),
		ModelKey:      string(modelKey),
		ObjectID:      objectID,
		ChangedFields: changed,
	}
}
