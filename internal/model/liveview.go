package model

// LiveviewSlot places one camera in a Liveview's grid.
type LiveviewSlot struct {
	CameraID string `json:"cameraId"`
	Position int    `json:"position"`
	W        int    `json:"w"`
	H        int    `json:"h"`
}

// Liveview is a saved multi-camera layout on the controller. It shares
// the device apply path (spec.md §4.2 step 2) but has no MAC/firmware,
// so most of Header is unused and left zero-valued.
type Liveview struct {
	Header

	Name  string         `json:"name"`
	Slots []LiveviewSlot `json:"slots"`
}

func (lv *Liveview) CommonHeader() *Header { return &lv.Header }

func (lv *Liveview) ClearVolatile() {}
