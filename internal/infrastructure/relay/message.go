package relay

import (
	"encoding/json"
	"fmt"

	"remoteeye/internal/core/domain"
)

// MessageType is the closed set of envelope types on the relay socket.
// Anything else is dropped as malformed.
type MessageType string

const (
	TypeRegister   MessageType = "register"
	TypeStatus     MessageType = "status"
	TypeCommand    MessageType = "command"
	TypeCommandAck MessageType = "command_ack"
	TypeFrame      MessageType = "frame"
	TypeAudio      MessageType = "audio"
	TypeLocation   MessageType = "location"
	TypePing       MessageType = "ping"
	TypePong       MessageType = "pong"
)

// KnownMessageType reports whether t belongs to the envelope enumeration.
func KnownMessageType(t MessageType) bool {
	switch t {
	case TypeRegister, TypeStatus, TypeCommand, TypeCommandAck,
		TypeFrame, TypeAudio, TypeLocation, TypePing, TypePong:
		return true
	}
	return false
}

// Message is the wire envelope. Payload stays raw until the type-specific
// handler decodes it.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusPayload is a device-reported application status snapshot.
type StatusPayload struct {
	Status map[string]interface{} `json:"status"`
}

// CommandPayload is the server-to-device command envelope body.
type CommandPayload struct {
	ID     domain.CommandID       `json:"id"`
	Action domain.CommandAction   `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// CommandAckPayload is a device-reported command status transition.
type CommandAckPayload struct {
	ID     domain.CommandID     `json:"id"`
	Status domain.CommandStatus `json:"status"`
	Error  string               `json:"error,omitempty"`
}

// MediaPayload carries one opaque media unit. Data is base64 on the wire via
// encoding/json's []byte handling; the relay never inspects it.
type MediaPayload struct {
	Seq       uint64 `json:"seq,omitempty"`
	Data      []byte `json:"data"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// StatusEventPayload is the server-to-controller presence/status envelope body.
type StatusEventPayload struct {
	DeviceID domain.DeviceID        `json:"device_id"`
	Online   bool                   `json:"online"`
	LastSeen string                 `json:"last_seen"`
	Status   map[string]interface{} `json:"status,omitempty"`
}

func encodeMessage(t MessageType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return json.Marshal(Message{Type: t, Payload: raw})
}

func mediaKindFor(t MessageType) (domain.MediaKind, bool) {
	switch t {
	case TypeFrame:
		return domain.MediaKindFrame, true
	case TypeAudio:
		return domain.MediaKindAudio, true
	case TypeLocation:
		return domain.MediaKindLocation, true
	}
	return "", false
}
