package model

// Viewer is a hardware "liveview player" device — not to be confused
// with Liveview, the saved multi-camera layout it plays (spec.md §3.1
// supplemented distinction).
type Viewer struct {
	Header

	Name        string `json:"name"`
	LiveviewID  string `json:"liveview,omitempty"`
	StreamLimit int    `json:"streamLimit"`
}

func (v *Viewer) CommonHeader() *Header { return &v.Header }

func (v *Viewer) ClearVolatile() {}
