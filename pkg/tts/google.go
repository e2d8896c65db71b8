package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-jarvis/internal/gcp"
	"github.com/teslashibe/go-jarvis/internal/httpc"
)

const providerGoogle = "google"

// googleEncodings maps encodings onto AudioConfig.AudioEncoding.
var googleEncodings = map[Encoding]string{
	EncodingMP3:      "MP3",
	EncodingOggOpus:  "OGG_OPUS",
	EncodingLinear16: "LINEAR16",
}

// Google implements Provider using the Cloud Text-to-Speech v1 REST API.
type Google struct {
	svc    *texttospeech.Service
	config *Config
	logger *slog.Logger
}

// NewGoogle creates a Text-to-Speech client. BaseURL overrides the
// endpoint; without explicit credentials it uses application defaults.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if _, ok := googleEncodings[cfg.OutputFormat]; !ok {
		return nil, WrapError(providerGoogle, fmt.Errorf("unsupported output format %q", cfg.OutputFormat))
	}

	clientOpts, err := gcp.ClientOptions(ctx, gcp.Credentials{
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: cfg.CredentialsJSON,
		APIKey:          cfg.APIKey,
		Endpoint:        cfg.BaseURL,
		HTTPClient:      cfg.HTTPClient,
	}, gcp.ScopeCloudPlatform)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		svc:    svc,
		config: cfg,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to a single encoded clip.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.LanguageCode,
			SsmlGender:   string(g.config.Gender),
			Name:         g.config.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: googleEncodings[g.config.OutputFormat],
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapAPIError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: g.config.OutputFormat, SampleRate: 24000, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	if _, err := g.svc.Voices.List().LanguageCode(g.config.LanguageCode).Context(ctx).Do(); err != nil {
		return g.wrapAPIError(err)
	}
	return nil
}

// Close releases resources. The REST client holds none.
func (g *Google) Close() error {
	return nil
}

// wrapAPIError lifts googleapi errors into APIError so retry checks work.
func (g *Google) wrapAPIError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return WrapError(providerGoogle, &httpc.StatusError{StatusCode: gErr.Code, Message: gErr.Message})
	}
	return WrapError(providerGoogle, err)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
