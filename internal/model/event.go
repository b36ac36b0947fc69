package model

import (
	"reflect"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
)

// Event is a first-class object that also implies state changes on its
// target camera/device (spec.md §3, §4.2). Unlike devices, it has no
// ClearVolatile semantics of its own; completion is one-way (invariant 3).
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Start     time.Time `json:"-"`
	End       time.Time `json:"-"` // zero value means "active" (no end yet)
	CameraID  string    `json:"camera,omitempty"`
	DeviceID  string    `json:"device,omitempty"`

	SmartDetectTypes []SmartDetectType `json:"smartDetectTypes,omitempty"`

	// Metadata's shape depends on Type; carried opaquely.
	Metadata map[string]any `json:"metadata,omitempty"`

	Extras Extras `json:"-"`
}

// Active reports whether the event has not yet completed (invariant 3:
// active has no end-time).
func (e *Event) Active() bool { return e.End.IsZero() }

// Complete sets the event's end time, clamping it to Start if the
// controller sent an end earlier than start (spec.md §4.2 tie-breaking,
// §8 boundary behavior: "end >= start after apply").
func (e *Event) Complete(end time.Time) {
	if end.Before(e.Start) {
		end = e.Start
	}
	e.End = end
}

// ApplyEventUpdate merges an `event.update` partial into e (spec.md
// §4.2 event special path), returning the dotted changed-field paths.
// "end" is handled specially since it drives the active/complete
// transition and its clamping invariant; everything else goes through
// the generic reflect-based merge.
func ApplyEventUpdate(e *Event, partial []byte, parsers *cache.Parsers) ([]ChangedField, error) {
	m, err := decodeToMap(partial)
	if err != nil {
		return nil, err
	}
	var changed []ChangedField
	if v, ok := m["end"]; ok {
		delete(m, "end")
		if ms, ok := toInt64(v); ok {
			end := parsers.Timestamp(ms)
			if !end.Equal(e.End) {
				e.Complete(end)
				changed = append(changed, "end")
			}
		}
	}
	if e.Extras == nil {
		e.Extras = Extras{}
	}
	if err := applyPartial(reflect.ValueOf(e), m, "", &changed, e.Extras); err != nil {
		return nil, err
	}
	return changed, nil
}
