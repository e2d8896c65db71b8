// Package protocol defines the WebSocket messages exchanged between the
// browser client and the voice assistant.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeRequestGreeting MessageType = "requestGreeting" // Ask for the spoken greeting
	TypeAudioStream     MessageType = "audioStream"     // One recorded utterance

	// Server → Client messages
	TypeGreeting      MessageType = "greeting"      // Greeting audio
	TypeTranscription MessageType = "transcription" // Recognized text
	TypeGPTResponse   MessageType = "gptResponse"   // Reply text
	TypeGPT           MessageType = "gpt"           // Reply audio
	TypeError         MessageType = "error"         // Client-safe failure message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"`  // Unix milliseconds
	Seq       uint64          `json:"seq,omitempty"` // Utterance sequence, 0 for session-level events
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// WithSeq tags the message with an utterance sequence number
func (m *Message) WithSeq(seq uint64) *Message {
	m.Seq = seq
	return m
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// RequestGreetingData asks for a personalised greeting
type RequestGreetingData struct {
	UserName string `json:"user_name"`
}

// AudioStreamData carries one complete recorded utterance
type AudioStreamData struct {
	Format string `json:"format,omitempty"` // "webm", "wav", MIME type, or empty to sniff
	Data   string `json:"data"`             // base64 encoded container bytes
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// TextData carries transcription or reply text
type TextData struct {
	Text string `json:"text"`
}

// AudioData carries synthesized speech
type AudioData struct {
	Format string `json:"format"` // MIME type, e.g. "audio/mpeg"
	Data   string `json:"data"`   // base64 encoded
}

// ErrorData carries a client-safe error description
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
