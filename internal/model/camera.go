package model

// Channel is one resolution/bitrate tuple in a camera's channels array.
type Channel struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	Bitrate    int    `json:"bitrate"`
	IsRTSPEnabled bool `json:"isRtspEnabled"`
}

// RecordingSettings is a camera's recording schedule/mode sub-record.
type RecordingSettings struct {
	Mode                 RecordingMode `json:"mode"`
	RetentionDurationMs  int64         `json:"retentionDurationMs"`
	MinMotionEventTrigger int64        `json:"minMotionEventTrigger"`
	EnablePirTimelapse   bool          `json:"enablePirTimelapse"`
}

// ISPSettings is a camera's image-signal-processor sub-record.
type ISPSettings struct {
	Brightness  int    `json:"brightness"`
	Contrast    int    `json:"contrast"`
	Hue         int    `json:"hue"`
	Saturation  int    `json:"saturation"`
	Sharpness   int    `json:"sharpness"`
	IRLEDMode   string `json:"irLedMode"`
	WDR         int    `json:"wdr"`
}

// SmartDetectSettings controls which smart-detect categories a camera
// reports events for.
type SmartDetectSettings struct {
	ObjectTypes []SmartDetectType `json:"objectTypes"`
	AudioTypes  []string          `json:"audioTypes"`
}

// TalkbackSettings describes the camera's speaker for two-way audio.
// The core only exposes byte-level accessors; URL construction and the
// actual audio pipe are out of scope (spec.md §1).
type TalkbackSettings struct {
	TypeFmt    string `json:"typeFmt"`
	BindAddr   string `json:"bindAddr"`
	BindPort   int    `json:"bindPort"`
	SamplingRate int  `json:"samplingRate"`
}

// OSDSettings is the on-screen-display (LCD/LED) sub-record.
type OSDSettings struct {
	ShowName bool `json:"isNameEnabled"`
	ShowDate bool `json:"isDateEnabled"`
	ShowLogo bool `json:"isLogoEnabled"`
	ShowDebug bool `json:"isDebugEnabled"`
}

// Camera is a UniFi Protect camera device.
type Camera struct {
	Header

	Name              string              `json:"name"`
	Channels          []Channel           `json:"channels"`
	RecordingSettings RecordingSettings   `json:"recordingSettings"`
	ISPSettings       ISPSettings         `json:"ispSettings"`
	SmartDetect       SmartDetectSettings `json:"smartDetectSettings"`
	Talkback          TalkbackSettings    `json:"talkbackSettings"`
	OSD               OSDSettings         `json:"osdSettings"`

	// BridgeID is the currently attached bridge, empty if directly
	// adopted over the controller's own network.
	BridgeID string `json:"bridgeId,omitempty"`

	// Derived/volatile fields set by the diff engine's event-derivation
	// rules (spec.md §4.2), cleared on disconnect (invariant 4).
	IsMotionDetected bool  `json:"isMotionDetected"`
	LastMotion       int64 `json:"lastMotion"`
	LastMotionEnd    int64 `json:"lastMotionEnd"`
	IsRinging        bool  `json:"isRinging"`
	IsSmartDetected  bool  `json:"isSmartDetected"`

	// CurrentResolution/Stats are volatile telemetry cleared on
	// disconnect.
	CurrentResolutionIdx int              `json:"currentResolutionIdx"`
	Stats                map[string]any   `json:"stats,omitempty"`
}

func (c *Camera) CommonHeader() *Header { return &c.Header }

func (c *Camera) ClearVolatile() {
	c.IsMotionDetected = false
	c.LastMotion = 0
	c.LastMotionEnd = 0
	c.IsRinging = false
	c.IsSmartDetected = false
	c.CurrentResolutionIdx = 0
	c.Stats = nil
}
