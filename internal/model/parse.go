package model

import (
	"encoding/json"
	"reflect"

	"github.com/lumenvue/protectclient/internal/cache"
)

// devicePtr constrains a generic device decode to a pointer type that
// both satisfies Device and is addressable via new(T).
type devicePtr[T any] interface {
	*T
	Device
}

// decodeDevice builds a *T (via its PT pointer form) from a decoded
// wire object, routing the header specials through parsers and
// everything else through the generic reflect-based merge.
func decodeDevice[T any, PT devicePtr[T]](raw map[string]any, parsers *cache.Parsers) (PT, error) {
	obj := new(T)
	ptr := PT(obj)

	h := ptr.CommonHeader()
	var changed []ChangedField
	applyHeaderSpecials(h, raw, parsers, &changed)

	if h.Extras == nil {
		h.Extras = Extras{}
	}
	if err := applyPartial(reflect.ValueOf(ptr), raw, "", &changed, h.Extras); err != nil {
		return nil, err
	}
	return ptr, nil
}

// decodeDeviceList unmarshals a JSON array of device objects into a
// map keyed by id, skipping entries this codec can't even parse into a
// map shape (malformed entries are logged by the caller, not fatal to
// the whole bootstrap load).
func decodeDeviceList[T any, PT devicePtr[T]](raw json.RawMessage, parsers *cache.Parsers) (map[string]PT, error) {
	var items []json.RawMessage
	if len(raw) == 0 {
		return map[string]PT{}, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make(map[string]PT, len(items))
	for _, item := range items {
		m, err := decodeToMap(item)
		if err != nil {
			return nil, err
		}
		dev, err := decodeDevice[T, PT](m, parsers)
		if err != nil {
			return nil, err
		}
		out[dev.CommonHeader().ID] = dev
	}
	return out, nil
}

// ParseBootstrap decodes the controller's full bootstrap payload
// (spec.md §4.1 `parse_bootstrap`) into a ready-to-use Bootstrap. Every
// device list is optional except cameras; a controller predating
// keyrings/ulp-users simply omits those keys, leaving nil maps.
func ParseBootstrap(data []byte, parsers *cache.Parsers) (*Bootstrap, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ParseError{Reason: "malformed bootstrap payload", Err: err}
	}

	b := NewBootstrap()

	if raw, ok := top["nvr"]; ok {
		m, err := decodeToMap(raw)
		if err != nil {
			return nil, &ParseError{Reason: "nvr", Err: err}
		}
		nvr, err := decodeDevice[NVR, *NVR](m, parsers)
		if err != nil {
			return nil, &ParseError{Reason: "nvr", Err: err}
		}
		b.NVR = nvr
	}
	if b.NVR == nil {
		return nil, &ParseError{Reason: "missing required nvr object"}
	}

	if _, ok := top["cameras"]; !ok {
		return nil, &ParseError{Reason: "missing required cameras list"}
	}

	var err error
	if b.Cameras, err = decodeDeviceList[Camera, *Camera](top["cameras"], parsers); err != nil {
		return nil, &ParseError{Reason: "cameras", Err: err}
	}
	if b.Lights, err = decodeDeviceList[Light, *Light](top["lights"], parsers); err != nil {
		return nil, &ParseError{Reason: "lights", Err: err}
	}
	if b.Sensors, err = decodeDeviceList[Sensor, *Sensor](top["sensors"], parsers); err != nil {
		return nil, &ParseError{Reason: "sensors", Err: err}
	}
	if b.Viewers, err = decodeDeviceList[Viewer, *Viewer](top["viewers"], parsers); err != nil {
		return nil, &ParseError{Reason: "viewers", Err: err}
	}
	if b.Chimes, err = decodeDeviceList[Chime, *Chime](top["chimes"], parsers); err != nil {
		return nil, &ParseError{Reason: "chimes", Err: err}
	}
	if b.Doorlocks, err = decodeDeviceList[Doorlock, *Doorlock](top["doorlocks"], parsers); err != nil {
		return nil, &ParseError{Reason: "doorlocks", Err: err}
	}
	if b.Bridges, err = decodeDeviceList[Bridge, *Bridge](top["bridges"], parsers); err != nil {
		return nil, &ParseError{Reason: "bridges", Err: err}
	}
	if b.Liveviews, err = decodeDeviceList[Liveview, *Liveview](top["liveviews"], parsers); err != nil {
		return nil, &ParseError{Reason: "liveviews", Err: err}
	}
	if raw, ok := top["keyrings"]; ok {
		if b.Keyrings, err = decodeDeviceList[Keyring, *Keyring](raw, parsers); err != nil {
			return nil, &ParseError{Reason: "keyrings", Err: err}
		}
	}
	if raw, ok := top["users"]; ok {
		if b.UlpUsers, err = decodeDeviceList[UlpUser, *UlpUser](raw, parsers); err != nil {
			return nil, &ParseError{Reason: "users", Err: err}
		}
	}

	if raw, ok := top["lastUpdateId"]; ok {
		_ = json.Unmarshal(raw, &b.LastUpdateID)
	}
	if raw, ok := top["authUserId"]; ok {
		_ = json.Unmarshal(raw, &b.AuthUserID)
	}
	if raw, ok := top["accessKey"]; ok {
		_ = json.Unmarshal(raw, &b.AccessKey)
	}

	b.setBootstrapRef()
	return b, nil
}

// NewDevice decodes a full wire object for the given model-key into its
// typed variant, for the diff engine's `add` packet path (spec.md
// §4.2). Returns a ParseError for a model-key this client has no typed
// variant for.
func NewDevice(modelKey ModelKey, payload []byte, parsers *cache.Parsers) (Device, error) {
	m, err := decodeToMap(payload)
	if err != nil {
		return nil, err
	}
	switch modelKey {
	case ModelCamera:
		return decodeDevice[Camera, *Camera](m, parsers)
	case ModelLight:
		return decodeDevice[Light, *Light](m, parsers)
	case ModelSensor:
		return decodeDevice[Sensor, *Sensor](m, parsers)
	case ModelViewer:
		return decodeDevice[Viewer, *Viewer](m, parsers)
	case ModelChime:
		return decodeDevice[Chime, *Chime](m, parsers)
	case ModelDoorlock:
		return decodeDevice[Doorlock, *Doorlock](m, parsers)
	case ModelBridge:
		return decodeDevice[Bridge, *Bridge](m, parsers)
	case ModelLiveview:
		return decodeDevice[Liveview, *Liveview](m, parsers)
	case ModelNVR:
		return decodeDevice[NVR, *NVR](m, parsers)
	case ModelKeyring:
		return decodeDevice[Keyring, *Keyring](m, parsers)
	case ModelUlpUser:
		return decodeDevice[UlpUser, *UlpUser](m, parsers)
	default:
		return nil, &ParseError{Reason: "unsupported model key " + string(modelKey)}
	}
}

// NewEvent decodes a full wire object for an `event.add` packet.
func NewEvent(payload []byte, parsers *cache.Parsers) (*Event, error) {
	m, err := decodeToMap(payload)
	if err != nil {
		return nil, err
	}
	e := &Event{Extras: Extras{}}
	var changed []ChangedField
	if v, ok := m["start"]; ok {
		delete(m, "start")
		if ms, ok := toInt64(v); ok {
			e.Start = parsers.Timestamp(ms)
		}
	}
	if v, ok := m["end"]; ok {
		delete(m, "end")
		if ms, ok := toInt64(v); ok {
			e.Complete(parsers.Timestamp(ms))
		}
	}
	rv := reflect.ValueOf(e)
	if err := applyPartial(rv, m, "", &changed, e.Extras); err != nil {
		return nil, err
	}
	return e, nil
}
