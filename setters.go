package protect

import (
	"context"
	"fmt"

	"github.com/lumenvue/protectclient/internal/model"
	"github.com/lumenvue/protectclient/internal/mutation"
)

// save drives the dirty-buffer-then-PATCH write algorithm (spec.md
// §4.5) for one field edit. Callers must already have written newValue
// onto device's in-memory field under Bootstrap.Lock before calling
// this, so ToWire reads the post-edit value.
func (c *Client) save(ctx context.Context, deviceID string, device model.Device, patchPath, fieldPath string, oldValue, newValue any) error {
	c.buffer.Set(deviceID, fieldPath, oldValue, newValue)
	saver := mutation.NewSaver(c.buffer, c.ignore, c.http, c.parsers)
	if err := saver.Save(ctx, deviceID, device, patchPath); err != nil {
		if c.metrics != nil {
			c.metrics.ObservePacketDropped("save-failed")
		}
		return err
	}
	return nil
}

// SetCameraRecordingMode sets a camera's recording mode and saves it
// (spec.md §8 scenario 3's write side).
func (c *Client) SetCameraRecordingMode(ctx context.Context, cameraID string, mode model.RecordingMode) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetCameraRecordingMode", Reason: "not connected"}
	}

	b.Lock()
	cam := b.Cameras[cameraID]
	if cam == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/cameras/" + cameraID, Body: "unknown camera id"}
	}
	old := cam.RecordingSettings.Mode
	cam.RecordingSettings.Mode = mode
	b.Unlock()

	return c.save(ctx, cameraID, cam, "/api/cameras/"+cameraID, "recordingSettings.mode", old, mode)
}

// SetCameraName renames a camera.
func (c *Client) SetCameraName(ctx context.Context, cameraID, name string) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetCameraName", Reason: "not connected"}
	}

	b.Lock()
	cam := b.Cameras[cameraID]
	if cam == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/cameras/" + cameraID, Body: "unknown camera id"}
	}
	old := cam.Name
	cam.Name = name
	b.Unlock()

	return c.save(ctx, cameraID, cam, "/api/cameras/"+cameraID, "name", old, name)
}

// SetCameraISPBrightness adjusts a camera's image-signal-processor
// brightness setting.
func (c *Client) SetCameraISPBrightness(ctx context.Context, cameraID string, brightness int) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetCameraISPBrightness", Reason: "not connected"}
	}

	b.Lock()
	cam := b.Cameras[cameraID]
	if cam == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/cameras/" + cameraID, Body: "unknown camera id"}
	}
	old := cam.ISPSettings.Brightness
	cam.ISPSettings.Brightness = brightness
	b.Unlock()

	return c.save(ctx, cameraID, cam, "/api/cameras/"+cameraID, "ispSettings.brightness", old, brightness)
}

// SetCameraOSDShowName toggles whether the camera's on-screen display
// overlays its name.
func (c *Client) SetCameraOSDShowName(ctx context.Context, cameraID string, show bool) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetCameraOSDShowName", Reason: "not connected"}
	}

	b.Lock()
	cam := b.Cameras[cameraID]
	if cam == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/cameras/" + cameraID, Body: "unknown camera id"}
	}
	old := cam.OSD.ShowName
	cam.OSD.ShowName = show
	b.Unlock()

	return c.save(ctx, cameraID, cam, "/api/cameras/"+cameraID, "osdSettings.isNameEnabled", old, show)
}

// SetLightPIREnabled toggles a light's motion-triggered illumination.
func (c *Client) SetLightPIREnabled(ctx context.Context, lightID string, enabled bool) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetLightPIREnabled", Reason: "not connected"}
	}

	b.Lock()
	light := b.Lights[lightID]
	if light == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/lights/" + lightID, Body: "unknown light id"}
	}
	old := light.PIR.IsPIREnabled
	light.PIR.IsPIREnabled = enabled
	b.Unlock()

	return c.save(ctx, lightID, light, "/api/lights/"+lightID, "lightDeviceSettings.isPirEnabled", old, enabled)
}

// SetLightName renames a light.
func (c *Client) SetLightName(ctx context.Context, lightID, name string) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetLightName", Reason: "not connected"}
	}

	b.Lock()
	light := b.Lights[lightID]
	if light == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/lights/" + lightID, Body: "unknown light id"}
	}
	old := light.Name
	light.Name = name
	b.Unlock()

	return c.save(ctx, lightID, light, "/api/lights/"+lightID, "name", old, name)
}

// SetChimePairedCameras replaces a chime's paired-camera id list
// (spec.md §8 scenario 6: the list may reference a not-yet-adopted
// camera id, which is retained rather than silently dropped).
func (c *Client) SetChimePairedCameras(ctx context.Context, chimeID string, cameraIDs []string) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetChimePairedCameras", Reason: "not connected"}
	}

	b.Lock()
	chime := b.Chimes[chimeID]
	if chime == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/chimes/" + chimeID, Body: "unknown chime id"}
	}
	old := chime.CameraIDs
	chime.CameraIDs = cameraIDs
	b.Unlock()

	return c.save(ctx, chimeID, chime, "/api/chimes/"+chimeID, "cameraIds", old, cameraIDs)
}

// SetDoorlockAutoLockTimeout sets a doorlock's auto-relock timeout in
// milliseconds.
func (c *Client) SetDoorlockAutoLockTimeout(ctx context.Context, doorlockID string, timeoutMs int64) error {
	b := c.Bootstrap()
	if b == nil {
		return &StateError{Op: "SetDoorlockAutoLockTimeout", Reason: "not connected"}
	}

	b.Lock()
	lock := b.Doorlocks[doorlockID]
	if lock == nil {
		b.Unlock()
		return &NotFoundError{Path: "/api/doorlocks/" + doorlockID, Body: "unknown doorlock id"}
	}
	old := lock.AutoLockTimeoutMs
	lock.AutoLockTimeoutMs = timeoutMs
	b.Unlock()

	return c.save(ctx, doorlockID, lock, "/api/doorlocks/"+doorlockID, "autoLockTimeoutMs", old, timeoutMs)
}

// validRecordingModes lists the settable values a caller may pass to
// SetCameraRecordingMode without constructing the enum directly;
// mirrors model.RecordingMode's closed set (spec.md §4.1).
func validRecordingModes() []model.RecordingMode {
	return []model.RecordingMode{
		model.RecordingAlways, model.RecordingNever, model.RecordingMotion,
		model.RecordingSmart, model.RecordingDetect, model.RecordingSchedul,
	}
}

// ValidateRecordingMode reports whether mode is one of the controller's
// known recording modes, for callers building a UI picker.
func ValidateRecordingMode(mode model.RecordingMode) error {
	for _, m := range validRecordingModes() {
		if m == mode {
			return nil
		}
	}
	return fmt.Errorf("protect: %q is not a known recording mode", mode)
}
