package stt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-jarvis/internal/gcp"
)

const providerGoogle = "google"

// Google implements Provider using the Cloud Speech-to-Text v1 REST API.
type Google struct {
	svc     *speech.Service
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGoogle creates a Speech-to-Text client. Without explicit credentials
// it falls back to application default credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	clientOpts, err := gcp.ClientOptions(ctx, gcp.Credentials{
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: cfg.CredentialsJSON,
		APIKey:          cfg.APIKey,
		Endpoint:        cfg.Endpoint,
		HTTPClient:      cfg.HTTPClient,
	}, gcp.ScopeCloudPlatform)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svc, err := newSpeechService(ctx, clientOpts)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	return &Google{
		svc:     svc,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("component", "stt.google"),
	}, nil
}

func newSpeechService(ctx context.Context, opts []option.ClientOption) (*speech.Service, error) {
	svc, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech service: %w", err)
	}
	return svc, nil
}

// Transcribe sends pcm to the synchronous recognize endpoint.
func (g *Google) Transcribe(ctx context.Context, pcm []byte, spec Spec) (string, error) {
	if len(pcm) == 0 {
		return "", &RecognitionError{Kind: KindInvalidAudio, Provider: providerGoogle, Err: ErrEmptyAudio}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := &speech.RecognizeRequest{
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(pcm),
		},
		Config: &speech.RecognitionConfig{
			Encoding:                   spec.Encoding,
			SampleRateHertz:            int64(spec.SampleRate),
			AudioChannelCount:          int64(spec.Channels),
			LanguageCode:               spec.LanguageCode,
			EnableAutomaticPunctuation: spec.Punctuation,
			Model:                      g.model,
		},
	}

	start := time.Now()
	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(resp.Results) == 0 {
		g.logger.Debug("no speech recognized", "elapsed_ms", time.Since(start).Milliseconds())
		return "", nil
	}

	var lines []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(result.Alternatives[0].Transcript); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		return "", &RecognitionError{Kind: KindNoSpeechDetected, Provider: providerGoogle, Err: ErrNoTranscript}
	}

	g.logger.Debug("recognized speech",
		"segments", len(lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return strings.Join(lines, "\n"), nil
}

// Close releases resources. The REST client holds none.
func (g *Google) Close() error {
	return nil
}

// classify maps transport and API failures onto recognition kinds.
func classify(ctx context.Context, err error) error {
	re := &RecognitionError{Kind: KindUnavailable, Provider: providerGoogle, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		re.StatusCode = apiErr.Code
		if apiErr.Code == http.StatusBadRequest {
			re.Kind = KindInvalidAudio
		}
		return re
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		re.Err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return re
}

var _ Provider = (*Google)(nil)
