// Package stt provides a unified interface for speech-to-text providers.
//
// A Provider turns a buffer of raw PCM into a transcript. Zero recognition
// results (silence) are not an error and yield an empty transcript.
//
// Example usage:
//
//	provider, err := stt.NewGoogle(ctx, stt.WithCredentialsFile("creds.json"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.Transcribe(ctx, pcm, stt.DefaultSpec())
package stt

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	// Transcribe recognizes speech in pcm, which must match spec.
	// Multiple result segments are joined with "\n".
	Transcribe(ctx context.Context, pcm []byte, spec Spec) (string, error)

	// Close releases resources held by the provider.
	Close() error
}

// Spec describes the audio handed to Transcribe and how to recognize it.
type Spec struct {
	SampleRate   int
	Encoding     string
	Channels     int
	LanguageCode string

	// Punctuation enables automatic punctuation in the transcript.
	Punctuation bool
}

// DefaultSpec matches the transcoder output: 48 kHz mono LINEAR16, US English.
func DefaultSpec() Spec {
	return Spec{
		SampleRate:   48000,
		Encoding:     "LINEAR16",
		Channels:     1,
		LanguageCode: "en-US",
		Punctuation:  true,
	}
}
