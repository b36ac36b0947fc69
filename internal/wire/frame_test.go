package wire

import (
	"bytes"
	"testing"
)

func buildMessage(t *testing.T, action Frame, payload Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, &action); err != nil {
		t.Fatalf("encode action frame: %v", err)
	}
	if err := EncodeFrame(&buf, &payload); err != nil {
		t.Fatalf("encode payload frame: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePacket_JSON(t *testing.T) {
	action := Frame{Type: FrameAction, Format: FormatJSON, Payload: []byte(`{"action":"update","newUpdateId":"u2","modelKey":"camera","id":"cam1"}`)}
	payload := Frame{Type: FramePayload, Format: FormatJSON, Payload: []byte(`{"name":"Front Door"}`)}

	pkt, err := DecodePacket(buildMessage(t, action, payload))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if pkt.Header.Action != ActionUpdate || pkt.Header.NewUpdateID != "u2" || pkt.Header.ModelKey != "camera" || pkt.Header.ID != "cam1" {
		t.Fatalf("unexpected header: %+v", pkt.Header)
	}
	if string(pkt.Payload) != `{"name":"Front Door"}` {
		t.Fatalf("unexpected payload: %s", pkt.Payload)
	}
}

func TestDecodePacket_RemoveZeroLengthPayload(t *testing.T) {
	action := Frame{Type: FrameAction, Format: FormatJSON, Payload: []byte(`{"action":"remove","newUpdateId":"u3","modelKey":"camera","id":"cam1"}`)}
	payload := Frame{Type: FramePayload, Format: FormatJSON, Payload: nil}

	pkt, err := DecodePacket(buildMessage(t, action, payload))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if pkt.Header.Action != ActionRemove {
		t.Fatalf("expected remove action, got %q", pkt.Header.Action)
	}
	if len(pkt.Payload) != 0 {
		t.Fatalf("expected empty payload, got %q", pkt.Payload)
	}
}

func TestDecodePacket_DeflateCompressed(t *testing.T) {
	raw := []byte(`{"name":"Back Yard","isMotionDetected":true}`)
	compressed, err := DeflateCompress(raw)
	if err != nil {
		t.Fatalf("DeflateCompress: %v", err)
	}

	action := Frame{Type: FrameAction, Format: FormatJSON, Payload: []byte(`{"action":"update","newUpdateId":"u4","modelKey":"camera","id":"cam2"}`)}
	payload := Frame{Type: FramePayload, Format: FormatDeflate, Payload: compressed}

	pkt, err := DecodePacket(buildMessage(t, action, payload))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if string(pkt.Payload) != string(raw) {
		t.Fatalf("expected inflated payload %q, got %q", raw, pkt.Payload)
	}
}

func TestRawPayload_FormatWinsOverFlag(t *testing.T) {
	raw := []byte(`{"x":1}`)
	compressed, err := DeflateCompress(raw)
	if err != nil {
		t.Fatalf("DeflateCompress: %v", err)
	}

	// format=3 (deflate) but the redundant flag byte left at 0: format
	// must still win and the payload must still inflate correctly.
	f := &Frame{Format: FormatDeflate, Deflate: false, Payload: compressed}
	out, err := f.RawPayload()
	if err != nil {
		t.Fatalf("RawPayload: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("expected inflated payload %q, got %q", raw, out)
	}
}

func TestRawPayload_FlagHonoredEvenWhenFormatNotDeflate(t *testing.T) {
	raw := []byte(`{"y":2}`)
	compressed, err := DeflateCompress(raw)
	if err != nil {
		t.Fatalf("DeflateCompress: %v", err)
	}

	f := &Frame{Format: FormatJSON, Deflate: true, Payload: compressed}
	out, err := f.RawPayload()
	if err != nil {
		t.Fatalf("RawPayload: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("expected inflated payload %q, got %q", raw, out)
	}
}

func TestDecodeFrame_OversizedRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{byte(FramePayload), byte(FormatJSON), 0, 0, 0xFF, 0xFF, 0xFF, 0xFF})

	if _, err := DecodeFrame(&buf); err == nil {
		t.Fatal("expected oversized frame to be rejected")
	}
}

func TestDecodeMessage_OrderIndependent(t *testing.T) {
	action := Frame{Type: FrameAction, Format: FormatJSON, Payload: []byte(`{"action":"add","newUpdateId":"u1","modelKey":"light","id":"l1"}`)}
	payload := Frame{Type: FramePayload, Format: FormatJSON, Payload: []byte(`{"name":"Light 1"}`)}

	// Payload frame first, action frame second — DecodeMessage must
	// still identify them by type, not position.
	msg := buildMessage(t, payload, action)
	gotAction, gotPayload, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if gotAction.Type != FrameAction || gotPayload.Type != FramePayload {
		t.Fatalf("frames not correctly identified by type")
	}
}
