// Package hub provides a thread-safe websocket broadcast hub for hexapod
// telemetry, using the channel-based fan-out pattern.
package hub

import "encoding/json"

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded telemetry event.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (JPEG camera frames).
	BinaryMessage
)

// Telemetry event kinds pushed to dashboard clients.
const (
	EventDecision = "decision" // fused movement decision each tick
	EventStatus   = "status"   // agent state snapshot
	EventScene    = "scene"    // fresh VLM scene result
	EventAlert    = "alert"    // critical safety alert
	EventComment  = "comment"  // dialogue output
)

// Message is one broadcast unit.
type Message struct {
	Type MessageType
	Data []byte
}

// Event is the JSON envelope for telemetry messages.
type Event struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// NewJSONMessage creates a JSON message from pre-encoded bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// NewEvent encodes a typed telemetry event.
func NewEvent(kind string, payload interface{}) (Message, error) {
	data, err := json.Marshal(Event{Kind: kind, Payload: payload})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
