// Package wire implements the controller's binary WebSocket packet
// framing: two 8-byte-header frames (an action frame describing the
// change, a payload frame carrying the data) back to back in a single
// WebSocket message.
package wire

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

// FrameType discriminates the two frames that make up a packet.
type FrameType byte

const (
	FrameAction  FrameType = 1
	FramePayload FrameType = 2
)

// PayloadFormat is the encoding of a frame's payload bytes.
type PayloadFormat byte

const (
	FormatJSON    PayloadFormat = 1
	FormatString  PayloadFormat = 2
	FormatDeflate PayloadFormat = 3
)

// MaxFrameSize is the largest payload this codec accepts; larger
// declared lengths are rejected before any read is attempted.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MiB

const headerSize = 8

// Frame is one decoded 8-byte-header segment plus its payload.
type Frame struct {
	Type    FrameType
	Format  PayloadFormat
	Deflate bool
	Payload []byte
}

// FrameError reports a malformed frame header or an oversized/truncated
// payload.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string { return "wire: " + e.Reason }

// DecodeFrame reads one frame from r: 8-byte header, then exactly
// length payload bytes. A zero-length payload is valid (used by
// `remove` packets' payload frame).
func DecodeFrame(r io.Reader) (*Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(hdr[4:8])
	if length > MaxFrameSize {
		return nil, &FrameError{Reason: fmt.Sprintf("frame length %d exceeds max %d", length, MaxFrameSize)}
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("wire: read frame payload: %w", err)
		}
	}

	return &Frame{
		Type:    FrameType(hdr[0]),
		Format:  PayloadFormat(hdr[1]),
		Deflate: hdr[2] != 0,
		Payload: payload,
	}, nil
}

// DecodeMessage splits one WebSocket binary message into its action and
// payload frames per spec: a complete packet is frame[type=1] followed
// by frame[type=2].
func DecodeMessage(data []byte) (action, payload *Frame, err error) {
	r := bytes.NewReader(data)

	f1, err := DecodeFrame(r)
	if err != nil {
		return nil, nil, err
	}
	f2, err := DecodeFrame(r)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case f1.Type == FrameAction && f2.Type == FramePayload:
		return f1, f2, nil
	case f1.Type == FramePayload && f2.Type == FrameAction:
		return f2, f1, nil
	default:
		return nil, nil, &FrameError{Reason: fmt.Sprintf("expected action+payload frame pair, got types %d and %d", f1.Type, f2.Type)}
	}
}

// RawPayload returns a frame's decompressed bytes, inflating raw
// deflate when either the format byte or the deflate flag says to —
// "format wins over flag": format=3 is honored even if the flag byte is
// 0, and the flag is honored even if format isn't 3 (spec boundary
// case).
func (f *Frame) RawPayload() ([]byte, error) {
	if len(f.Payload) == 0 {
		return f.Payload, nil
	}
	if f.Format != FormatDeflate && !f.Deflate {
		return f.Payload, nil
	}

	zr := flate.NewReader(bytes.NewReader(f.Payload))
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("wire: inflate payload: %w", err)
	}
	return out, nil
}

// EncodeFrame writes an 8-byte header followed by payload to w. Used by
// tests and by any future write-path that needs to emit controller-wire
// frames (the client itself only ever decodes these; writes go over
// plain HTTP).
func EncodeFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxFrameSize {
		return &FrameError{Reason: fmt.Sprintf("frame length %d exceeds max %d", len(f.Payload), MaxFrameSize)}
	}
	var hdr [headerSize]byte
	hdr[0] = byte(f.Type)
	hdr[1] = byte(f.Format)
	if f.Deflate {
		hdr[2] = 1
	}
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(f.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// DeflateCompress raw-deflates data with no zlib wrapper, the inverse of
// RawPayload's inflate path. Exists for test fixtures constructing
// compressed frames.
func DeflateCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
