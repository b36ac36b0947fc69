package model

import (
	"time"
)

// Permissions is the device-level permission bitmap. Bits are
// controller-defined; the client does not interpret individual bits, it
// only carries the value through.
type Permissions uint32

// Extras holds wire keys the codec doesn't have a typed field for.
// Preserved verbatim across ParseBootstrap/ToWire round-trips.
type Extras map[string]any

// Clone returns a deep-enough copy for safe storage on a new object;
// values are JSON-decoded scalars/maps/slices, so a shallow top-level
// copy plus recursive map/slice copy is sufficient.
func (e Extras) Clone() Extras {
	if e == nil {
		return nil
	}
	out := make(Extras, len(e))
	for k, v := range e {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Header is the common header every device variant embeds, per spec.md
// §3. MAC is always normalized lowercase/no-separators by the codec
// before it reaches this struct.
type Header struct {
	ID          string      `json:"id"`
	MAC         string      `json:"-"` // normalized by the codec, see applyHeaderSpecials
	ModelKey    ModelKey    `json:"modelKey"`
	State       DeviceState `json:"state"`
	FirmwareVer string      `json:"firmwareVersion"`
	HardwareRev string      `json:"hardwareRevision"`
	UpSince     time.Time   `json:"-"`
	LastSeen    time.Time   `json:"-"`
	Permissions Permissions `json:"-"`

	// Extras carries any top-level key on this device this codec has no
	// typed field for. Never typed, always preserved.
	Extras Extras `json:"-"`

	// bootstrap is the non-owning back-reference required by invariant 5
	// (exclusive ownership). Never serialized.
	bootstrap *Bootstrap
}

// Bootstrap returns the owning Bootstrap, or nil if this device was
// constructed outside of one (e.g. in a unit test).
func (h *Header) Bootstrap() *Bootstrap { return h.bootstrap }

func (h *Header) setBootstrap(b *Bootstrap) { h.bootstrap = b }

// Device is the interface every tagged-union variant implements, giving
// the diff engine a uniform way to look up/insert/merge/clear regardless
// of concrete type.
type Device interface {
	// CommonHeader returns the shared header embedded in every variant.
	CommonHeader() *Header
	// ClearVolatile drops telemetry that invariant 4 says must be
	// cleared on a transition to StateDisconnected, while retaining
	// configuration.
	ClearVolatile()
}
