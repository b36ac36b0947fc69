package wire

import (
	"encoding/json"
	"fmt"
)

// Action is the packet's verb, decoded from the action frame's JSON
// body.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// ProtocolError reports a malformed WebSocket frame or an undecodable
// action header (spec.md §7): the caller logs it, drops the packet,
// and continues — never a fatal condition on its own.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
	}
	return "wire: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ActionHeader is the decoded JSON body of a packet's action frame.
type ActionHeader struct {
	Action      Action `json:"action"`
	NewUpdateID string `json:"newUpdateId"`
	ModelKey    string `json:"modelKey"`
	ID          string `json:"id"`
}

// Packet is one fully decoded application-level WebSocket message: the
// action header plus its raw (already-inflated) payload bytes. Payload
// is empty for `remove`.
type Packet struct {
	Header  ActionHeader
	Payload []byte
}

// DecodePacket decodes one WebSocket binary message into a Packet,
// handling frame pairing and deflate inflation.
func DecodePacket(data []byte) (*Packet, error) {
	actionFrame, payloadFrame, err := DecodeMessage(data)
	if err != nil {
		return nil, &ProtocolError{Reason: "frame pairing", Err: err}
	}

	actionBytes, err := actionFrame.RawPayload()
	if err != nil {
		return nil, &ProtocolError{Reason: "decode action frame", Err: err}
	}
	var hdr ActionHeader
	if err := json.Unmarshal(actionBytes, &hdr); err != nil {
		return nil, &ProtocolError{Reason: "unmarshal action header", Err: err}
	}

	payloadBytes, err := payloadFrame.RawPayload()
	if err != nil {
		return nil, &ProtocolError{Reason: "decode payload frame", Err: err}
	}

	return &Packet{Header: hdr, Payload: payloadBytes}, nil
}
