package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/model"
)

// Patcher is the minimal surface mutation needs from internal/httpapi,
// kept as an interface so this package doesn't force a concrete HTTP
// dependency on its tests.
type Patcher interface {
	PatchJSON(ctx context.Context, path string, body any) error
}

// Saver wires the dirty buffer, the ignore table, and the HTTP PATCH
// call into the write algorithm from spec.md §4.5.
type Saver struct {
	Buffer  *Buffer
	Ignore  *IgnoreTable
	HTTP    Patcher
	Parsers *cache.Parsers
}

// NewSaver builds a Saver over the given collaborators.
func NewSaver(buffer *Buffer, ignore *IgnoreTable, http Patcher, parsers *cache.Parsers) *Saver {
	return &Saver{Buffer: buffer, Ignore: ignore, HTTP: http, Parsers: parsers}
}

// Save computes the minimal PATCH body for device's pending dirty
// fields, registers each in the ignore table before sending (so an
// echo racing the HTTP response is still suppressed), and issues the
// PATCH. On success the dirty buffer is cleared — device's in-memory
// fields were already written by the setter that called Set, so no
// further local mutation is needed. On failure the device is rolled
// back to its last confirmed values and the error is surfaced.
func (s *Saver) Save(ctx context.Context, deviceID string, device model.Device, patchPath string) error {
	pending := s.Buffer.Pending(deviceID)
	if len(pending) == 0 {
		return nil
	}

	fields := make([]model.ChangedField, 0, len(pending))
	for path := range pending {
		fields = append(fields, model.ChangedField(path))
	}

	body, err := model.ToWire(device, fields)
	if err != nil {
		return fmt.Errorf("mutation: compute patch body: %w", err)
	}

	for _, f := range fields {
		s.Ignore.Register(deviceID, string(f))
	}

	var bodyMap map[string]any
	if err := json.Unmarshal(body, &bodyMap); err != nil {
		return fmt.Errorf("mutation: decode patch body: %w", err)
	}

	if err := s.HTTP.PatchJSON(ctx, patchPath, bodyMap); err != nil {
		s.rollback(deviceID, device)
		return err
	}

	s.Buffer.Clear(deviceID)
	return nil
}

func (s *Saver) rollback(deviceID string, device model.Device) {
	old := s.Buffer.Rollback(deviceID)
	if len(old) == 0 {
		return
	}
	data, err := json.Marshal(nestDottedPaths(old))
	if err != nil {
		return
	}
	// Best-effort: restore the device's in-memory fields to their last
	// confirmed values. A failure here leaves the device holding an
	// unsaved edit locally, which is surfaced to the caller as the
	// original save error, not this one.
	_, _ = model.UpdateInPlace(device, data, s.Parsers)
}

// nestDottedPaths turns {"recordingSettings.mode": v} into
// {"recordingSettings": {"mode": v}}, matching the one level of struct
// nesting UpdateInPlace/ToWire support.
func nestDottedPaths(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for path, v := range flat {
		parts := strings.SplitN(path, ".", 2)
		if len(parts) == 1 {
			out[path] = v
			continue
		}
		nested, _ := out[parts[0]].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
			out[parts[0]] = nested
		}
		nested[parts[1]] = v
	}
	return out
}
