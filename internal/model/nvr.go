package model

// NVR is the controller device itself; exactly one exists per Bootstrap
// (spec.md §3).
type NVR struct {
	Header

	Name               string `json:"name"`
	Host               string `json:"host"`
	Version            string `json:"version"`
	UplinkDevice       string `json:"uplinkDeviceId,omitempty"`
	TimezoneName       string `json:"timezone"`
	DoorbellSettings   map[string]any `json:"-"` // carried via Extras unless explicitly typed
	SmartDetectAgree   bool   `json:"smartDetectAgreementEnabled"`
	LocationSettings   map[string]any `json:"-"`
}

func (n *NVR) CommonHeader() *Header { return &n.Header }

func (n *NVR) ClearVolatile() {}
