// Package tts provides a unified interface for text-to-speech providers.
//
// Google Cloud Text-to-Speech is the primary backend; OpenAI's speech
// endpoint is available as an alternative or as a Chain fallback. Every
// provider returns a complete, encoded clip ready to hand to a browser.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithCredentialsFile("creds.json"),
//	    tts.WithVoice("en-US", tts.GenderMale),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Hello world")
//	// result.Audio contains MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete clip.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded clip.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated playback duration, zero when unknown.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding is an output audio encoding.
type Encoding string

const (
	EncodingMP3      Encoding = "mp3"
	EncodingOggOpus  Encoding = "ogg_opus"
	EncodingLinear16 Encoding = "linear16"
)

// MIMEType returns the content type browsers expect for e.
func (e Encoding) MIMEType() string {
	switch e {
	case EncodingOggOpus:
		return "audio/ogg"
	case EncodingLinear16:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// Gender selects the synthetic voice gender.
type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderNeutral Gender = "NEUTRAL"
)
