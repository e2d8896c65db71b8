package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewRequestGreetingMessage creates a greeting request
func NewRequestGreetingMessage(userName string) (*Message, error) {
	return NewMessage(TypeRequestGreeting, RequestGreetingData{UserName: userName})
}

// NewAudioStreamMessage creates an utterance upload message
func NewAudioStreamMessage(format string, audio []byte) (*Message, error) {
	return NewMessage(TypeAudioStream, AudioStreamData{
		Format: format,
		Data:   base64.StdEncoding.EncodeToString(audio),
	})
}

// NewTextMessage creates a transcription or gptResponse message
func NewTextMessage(msgType MessageType, text string) (*Message, error) {
	return NewMessage(msgType, TextData{Text: text})
}

// NewAudioMessage creates a greeting or gpt audio message
func NewAudioMessage(msgType MessageType, mimeType string, audio []byte) (*Message, error) {
	return NewMessage(msgType, AudioData{
		Format: mimeType,
		Data:   base64.StdEncoding.EncodeToString(audio),
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: message})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetRequestGreetingData extracts a greeting request from a message
func (m *Message) GetRequestGreetingData() (*RequestGreetingData, error) {
	var data RequestGreetingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioStreamData extracts an utterance upload from a message
func (m *Message) GetAudioStreamData() (*AudioStreamData, error) {
	var data AudioStreamData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 container bytes
func (a *AudioStreamData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// GetTextData extracts text from a message
func (m *Message) GetTextData() (*TextData, error) {
	var data TextData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioData extracts synthesized audio from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 audio data
func (a *AudioData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// GetErrorData extracts an error from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
