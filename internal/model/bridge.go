package model

// Bridge is a low-power mesh hub that relays Light/Sensor/Doorlock
// devices which don't have their own network stack (supplemented per
// spec.md §3.1).
type Bridge struct {
	Header

	Name string `json:"name"`
}

func (b *Bridge) CommonHeader() *Header { return &b.Header }

func (b *Bridge) ClearVolatile() {}
