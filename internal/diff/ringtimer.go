package diff

import (
	"time"

	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/notify"
	"github.com/lumenvue/protectclient/internal/wire"
)

// Some firmware never sends the `ring` event's end packet, so a ring
// is reset by an auto-expiring timer rather than unconditionally
// relying on event.update (spec.md §8 redesign note: "a conservative
// 3-second reset is specified; implementers should expose it as a
// parameter" — see RingResetTimeout).

func (e *Engine) ringResetTimeout() time.Duration {
	if e.RingResetTimeout > 0 {
		return e.RingResetTimeout
	}
	return defaultRingResetTimeout
}

// scheduleRingReset arms (or re-arms) the auto-reset timer for a
// ring event. Called while Bootstrap is locked, but the timer itself
// only fires later, off this goroutine.
func (e *Engine) scheduleRingReset(eventID, cameraID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if t, ok := e.ringTimers[eventID]; ok {
		t.Stop()
	}
	e.ringTimers[eventID] = time.AfterFunc(e.ringResetTimeout(), func() {
		e.fireRingReset(eventID, cameraID)
	})
}

// cancelRingReset disarms the timer once a real end packet arrives,
// preventing a redundant reset notification later.
func (e *Engine) cancelRingReset(eventID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if t, ok := e.ringTimers[eventID]; ok {
		t.Stop()
		delete(e.ringTimers, eventID)
	}
}

// fireRingReset runs on the timer's own goroutine, so it takes and
// releases Bootstrap.Lock itself rather than relying on the caller.
func (e *Engine) fireRingReset(eventID, cameraID string) {
	e.timersMu.Lock()
	delete(e.ringTimers, eventID)
	e.timersMu.Unlock()

	e.Bootstrap.Lock()
	cam := e.Bootstrap.Cameras[cameraID]
	var msg *notify.Message
	if cam != nil && cam.IsRinging {
		cam.IsRinging = false
		msg = &notify.Message{
			Action:        notify.Action(wire.ActionUpdate),
			ModelKey:      string(model.ModelCamera),
			ObjectID:      cameraID,
			ChangedFields: []string{"isRinging"},
		}
	}
	e.Bootstrap.Unlock()

	if msg != nil {
		e.Hub.PublishMessage(*msg)
	}
}
