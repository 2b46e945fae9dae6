package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of a websocket message.
type MessageType string

const (
	// Server -> client events
	TypePropertySyncCompleted MessageType = "property.sync_completed"
	TypePropertySyncError     MessageType = "property.sync_error"
	TypePropertyRegistered    MessageType = "property.registered"
	TypePropertyRemoved       MessageType = "property.removed"
	TypeStoreReset            MessageType = "store.reset"

	// Client -> server commands
	TypePing MessageType = "ping"

	// Server -> client responses
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message is the envelope of every websocket frame.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClientCommand is a message received from a client.
type ClientCommand struct {
	Type MessageType `json:"type"`
}

// SyncPayload is the payload for property.sync_completed events.
type SyncPayload struct {
	PropertyID       string     `json:"propertyId"`
	Name             string     `json:"name"`
	ReservationCount int        `json:"reservationCount"`
	LastSynced       *time.Time `json:"lastSynced"`
	DurationMs       int64      `json:"durationMs"`
}

// SyncErrorPayload is the payload for property.sync_error events.
type SyncErrorPayload struct {
	PropertyID string `json:"propertyId"`
	Name       string `json:"name"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// PropertyPayload is the payload for property.registered and property.removed.
type PropertyPayload struct {
	PropertyID string `json:"propertyId"`
	Name       string `json:"name,omitempty"`
}

// ResetPayload is the payload for store.reset events.
type ResetPayload struct {
	Removed int `json:"removed"`
}

// ErrorPayload is the payload for error responses to client commands.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"originalType,omitempty"`
}
