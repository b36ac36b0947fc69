package model

// Closed-set enums round-trip the raw wire string even when the
// controller ships a value newer than this client. A Go named string
// type already does this for free (no panic on an unfamiliar value); the
// Known() method is what gives callers a way to detect "this is a value
// we don't have a constant for" without losing the original string.

// DeviceState is the connection lifecycle of an adopted device.
type DeviceState string

const (
	StateConnected    DeviceState = "connected"
	StateConnecting   DeviceState = "connecting"
	StateDisconnected DeviceState = "disconnected"
)

// Known reports whether s is one of the three documented states.
func (s DeviceState) Known() bool {
	switch s {
	case StateConnected, StateConnecting, StateDisconnected:
		return true
	}
	return false
}

// EventType discriminates the Event tagged union.
type EventType string

const (
	EventMotion                EventType = "motion"
	EventRing                  EventType = "ring"
	EventSmartDetectZone       EventType = "smartDetectZone"
	EventSmartDetectLine       EventType = "smartDetectLine"
	EventSmartAudioDetect      EventType = "smartAudioDetect"
	EventNFCCardScanned        EventType = "nfcCardScanned"
	EventFingerprintIdentified EventType = "fingerprintIdentified"
	EventDeviceConnected       EventType = "deviceConnected"
	EventDeviceDisconnected    EventType = "deviceDisconnected"
	EventDeviceAdopted         EventType = "deviceAdopted"
)

func (t EventType) Known() bool {
	switch t {
	case EventMotion, EventRing, EventSmartDetectZone, EventSmartDetectLine,
		EventSmartAudioDetect, EventNFCCardScanned, EventFingerprintIdentified,
		EventDeviceConnected, EventDeviceDisconnected, EventDeviceAdopted:
		return true
	}
	return false
}

// SmartDetectType is a member of an event's smart-detect-types set.
type SmartDetectType string

const (
	SmartDetectPerson       SmartDetectType = "person"
	SmartDetectVehicle      SmartDetectType = "vehicle"
	SmartDetectPackage      SmartDetectType = "package"
	SmartDetectAnimal       SmartDetectType = "animal"
	SmartDetectLicensePlate SmartDetectType = "licensePlate"
	SmartDetectFace         SmartDetectType = "face"
)

func (t SmartDetectType) Known() bool {
	switch t {
	case SmartDetectPerson, SmartDetectVehicle, SmartDetectPackage,
		SmartDetectAnimal, SmartDetectLicensePlate, SmartDetectFace:
		return true
	}
	return false
}

// ModelKey is the wire discriminator for the device/event tagged union.
type ModelKey string

const (
	ModelCamera   ModelKey = "camera"
	ModelLight    ModelKey = "light"
	ModelSensor   ModelKey = "sensor"
	ModelViewer   ModelKey = "viewer"
	ModelChime    ModelKey = "chime"
	ModelDoorlock ModelKey = "doorlock"
	ModelBridge   ModelKey = "bridge"
	ModelLiveview ModelKey = "liveview"
	ModelNVR      ModelKey = "nvr"
	ModelEvent    ModelKey = "event"
	ModelKeyring  ModelKey = "keyring"
	ModelUlpUser  ModelKey = "ulpUser"
)

func (k ModelKey) Known() bool {
	switch k {
	case ModelCamera, ModelLight, ModelSensor, ModelViewer, ModelChime,
		ModelDoorlock, ModelBridge, ModelLiveview, ModelNVR, ModelEvent,
		ModelKeyring, ModelUlpUser:
		return true
	}
	return false
}

// RecordingMode controls a camera's recording schedule.
type RecordingMode string

const (
	RecordingAlways  RecordingMode = "always"
	RecordingNever   RecordingMode = "never"
	RecordingMotion  RecordingMode = "motion"
	RecordingSmart   RecordingMode = "smartDetect"
	RecordingDetect  RecordingMode = "detections"
	RecordingSchedul RecordingMode = "schedule"
)

func (m RecordingMode) Known() bool {
	switch m {
	case RecordingAlways, RecordingNever, RecordingMotion, RecordingSmart,
		RecordingDetect, RecordingSchedul:
		return true
	}
	return false
}

// MountType is the physical mounting of a Sensor.
type MountType string

const (
	MountDoor   MountType = "door"
	MountWindow MountType = "window"
	MountGarage MountType = "garage"
	MountLeak   MountType = "leak"
	MountNone   MountType = "none"
)

func (m MountType) Known() bool {
	switch m {
	case MountDoor, MountWindow, MountGarage, MountLeak, MountNone:
		return true
	}
	return false
}
