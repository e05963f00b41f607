package events

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of a WebSocket message
type MessageType string

const (
	// MessageTypeConnection greets a newly registered client
	MessageTypeConnection MessageType = "connection"

	// MessageTypeBatchEvent relays one progress event of a running batch
	MessageTypeBatchEvent MessageType = "batch:event"

	MessageTypeError MessageType = "error"
)

// WebSocketMessage is the envelope pushed to WebSocket subscribers
type WebSocketMessage struct {
	Type      MessageType     `json:"type"`
	BatchID   string          `json:"batch_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	TraceID   string          `json:"trace_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewBatchEventMessage wraps a progress event for WebSocket delivery
func NewBatchEventMessage(batchID string, e Event) (WebSocketMessage, error) {
	data, err := Marshal(e)
	if err != nil {
		return WebSocketMessage{}, err
	}
	return WebSocketMessage{
		Type:      MessageTypeBatchEvent,
		BatchID:   batchID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
