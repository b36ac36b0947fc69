package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
	"github.com/lumenvue/protectclient/internal/model"
)

type fakePatcher struct {
	fail bool
	path string
	body any
}

func (f *fakePatcher) PatchJSON(ctx context.Context, path string, body any) error {
	f.path = path
	f.body = body
	if f.fail {
		return &testPatchError{}
	}
	return nil
}

type testPatchError struct{}

func (e *testPatchError) Error() string { return "patch failed" }

func newTestCamera() *model.Camera {
	return &model.Camera{
		RecordingSettings: model.RecordingSettings{Mode: model.RecordingNever},
	}
}

func TestSaver_SuccessClearsBufferAndRegistersIgnore(t *testing.T) {
	buf := NewBuffer()
	ignore := NewIgnoreTable(time.Second)
	patcher := &fakePatcher{}
	saver := NewSaver(buf, ignore, patcher, cache.NewParsers(16))

	cam := newTestCamera()
	buf.Set("cam1", "recordingSettings.mode", string(model.RecordingNever), string(model.RecordingAlways))
	cam.RecordingSettings.Mode = model.RecordingAlways

	if err := saver.Save(context.Background(), "cam1", cam, "/api/cameras/cam1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if buf.Pending("cam1") != nil {
		t.Fatal("expected dirty buffer cleared on success")
	}
	if !ignore.Consume("cam1", "recordingSettings.mode") {
		t.Fatal("expected ignore entry registered before PATCH")
	}
}

func TestSaver_FailureRollsBack(t *testing.T) {
	buf := NewBuffer()
	ignore := NewIgnoreTable(time.Second)
	patcher := &fakePatcher{fail: true}
	saver := NewSaver(buf, ignore, patcher, cache.NewParsers(16))

	cam := newTestCamera()
	buf.Set("cam1", "recordingSettings.mode", string(model.RecordingNever), string(model.RecordingAlways))
	cam.RecordingSettings.Mode = model.RecordingAlways

	err := saver.Save(context.Background(), "cam1", cam, "/api/cameras/cam1")
	if err == nil {
		t.Fatal("expected Save to surface the patch error")
	}
	if cam.RecordingSettings.Mode != model.RecordingNever {
		t.Fatalf("expected rollback to restore mode to %q, got %q", model.RecordingNever, cam.RecordingSettings.Mode)
	}
	if buf.Pending("cam1") != nil {
		t.Fatal("expected dirty buffer cleared after rollback")
	}
}

func TestSaver_NoPendingChangesIsNoop(t *testing.T) {
	buf := NewBuffer()
	ignore := NewIgnoreTable(time.Second)
	patcher := &fakePatcher{}
	saver := NewSaver(buf, ignore, patcher, cache.NewParsers(16))

	if err := saver.Save(context.Background(), "cam1", newTestCamera(), "/api/cameras/cam1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if patcher.path != "" {
		t.Fatal("expected no PATCH call when nothing is dirty")
	}
}
