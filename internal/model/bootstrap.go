package model

import "sync"

// Bootstrap is the root entity: a snapshot of the whole device graph at
// an instant in time (spec.md §3). Exactly one NVR, eight device mappings
// keyed by 24-hex id (plus keyrings and ulp-users on newer controllers),
// an events mapping, and the stream-position/auth scalars. The events
// mapping has no size or age bound: an event leaves it only through an
// event remove packet.
//
// Concurrency: a single writer (the diff engine, invoked from the
// WebSocket reader goroutine) mutates the maps; any number of readers
// may call the accessor methods concurrently. Mutations take mu for
// writing; accessors take it for reading. This is the "brief per-device
// lock" option from spec.md §5 generalized to the whole graph, which is
// simpler to reason about than per-map-entry locks and still gives
// torn-read-free whole-device records, since a reader never observes a
// half-applied packet.
type Bootstrap struct {
	mu sync.RWMutex

	NVR *NVR

	Cameras   map[string]*Camera
	Lights    map[string]*Light
	Sensors   map[string]*Sensor
	Viewers   map[string]*Viewer
	Chimes    map[string]*Chime
	Doorlocks map[string]*Doorlock
	Bridges   map[string]*Bridge
	Liveviews map[string]*Liveview

	// Keyrings/UlpUsers are nil on controllers that predate them
	// (spec.md §3: "on newer controller versions").
	Keyrings map[string]*Keyring
	UlpUsers map[string]*UlpUser

	Events map[string]*Event

	LastUpdateID      string
	AuthUserID        string
	AccessKey         string
}

// NewBootstrap returns an empty Bootstrap with every map initialized
// except Keyrings and UlpUsers, which stay nil until ParseBootstrap
// finds those keys.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{
		Cameras:   make(map[string]*Camera),
		Lights:    make(map[string]*Light),
		Sensors:   make(map[string]*Sensor),
		Viewers:   make(map[string]*Viewer),
		Chimes:    make(map[string]*Chime),
		Doorlocks: make(map[string]*Doorlock),
		Bridges:   make(map[string]*Bridge),
		Liveviews: make(map[string]*Liveview),
		Events:    make(map[string]*Event),
	}
}

// Lock/Unlock/RLock/RUnlock expose the bootstrap's mutex to the diff
// engine (internal/diff), which lives in a different package and needs
// to hold a single critical section across "look up, mutate, bump
// last-update-id".
func (b *Bootstrap) Lock()    { b.mu.Lock() }
func (b *Bootstrap) Unlock()  { b.mu.Unlock() }
func (b *Bootstrap) RLock()   { b.mu.RLock() }
func (b *Bootstrap) RUnlock() { b.mu.RUnlock() }

// Camera returns a snapshot pointer to the camera with the given id, or
// nil if absent. Safe for concurrent use with diff engine mutation.
func (b *Bootstrap) Camera(id string) *Camera {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Cameras[id]
}

// Light returns the light with the given id, or nil.
func (b *Bootstrap) Light(id string) *Light {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Lights[id]
}

// Sensor returns the sensor with the given id, or nil.
func (b *Bootstrap) Sensor(id string) *Sensor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Sensors[id]
}

// Chime returns the chime with the given id, or nil.
func (b *Bootstrap) Chime(id string) *Chime {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Chimes[id]
}

// CameraIDs returns a stable snapshot slice of all camera ids.
func (b *Bootstrap) CameraIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.Cameras))
	for id := range b.Cameras {
		ids = append(ids, id)
	}
	return ids
}

// UpdateID returns the current last-update-id (invariant 2 anchor).
func (b *Bootstrap) UpdateID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.LastUpdateID
}

// AttachBootstrap sets the owning-bootstrap back-reference on a device
// added after the initial ParseBootstrap load (invariant 5), for the
// diff engine's `add` packet path (internal/diff).
func AttachBootstrap(d Device, b *Bootstrap) {
	d.CommonHeader().setBootstrap(b)
}

// setBootstrapRef walks every device map and sets the non-owning
// back-reference required by invariant 5. Called once after a full
// ParseBootstrap load; subsequent add packets set the reference
// individually (see internal/diff).
func (b *Bootstrap) setBootstrapRef() {
	for _, c := range b.Cameras {
		c.setBootstrap(b)
	}
	for _, l := range b.Lights {
		l.setBootstrap(b)
	}
	for _, s := range b.Sensors {
		s.setBootstrap(b)
	}
	for _, v := range b.Viewers {
		v.setBootstrap(b)
	}
	for _, c := range b.Chimes {
		c.setBootstrap(b)
	}
	for _, d := range b.Doorlocks {
		d.setBootstrap(b)
	}
	for _, br := range b.Bridges {
		br.setBootstrap(b)
	}
	for _, lv := range b.Liveviews {
		lv.setBootstrap(b)
	}
	for _, k := range b.Keyrings {
		k.setBootstrap(b)
	}
	for _, u := range b.UlpUsers {
		u.setBootstrap(b)
	}
	if b.NVR != nil {
		b.NVR.setBootstrap(b)
	}
}
