package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"
)

// OpenAI voices. Onyx is the closest match to the default Google male voice.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI speech models.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// openAIFormat describes a response_format and what it decodes to.
type openAIFormat struct {
	name       string
	sampleRate int
}

var openAIFormats = map[Encoding]openAIFormat{
	EncodingMP3:      {"mp3", 24000},
	EncodingOggOpus:  {"opus", 48000},
	EncodingLinear16: {"wav", 24000},
}

// OpenAI synthesizes through the /audio/speech endpoint.
type OpenAI struct {
	config  *Config
	format  openAIFormat
	client  *http.Client
	retry   httpc.Retry
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates an OpenAI speech provider with the onyx voice.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceOnyx
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceOnyx
	}
	format, ok := openAIFormats[cfg.OutputFormat]
	if !ok {
		return nil, WrapError(providerOpenAI, fmt.Errorf("unsupported output format %q", cfg.OutputFormat))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	logger := cfg.Logger.With("component", "tts.openai")
	return &OpenAI{
		config:  cfg,
		format:  format,
		client:  client,
		retry:   httpc.Retry{Max: cfg.MaxRetries, Delay: cfg.RetryDelay, Logger: logger},
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns the complete clip for text.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}

	start := time.Now()

	body, err := json.Marshal(speechRequest{
		Model:          o.config.ModelID,
		Voice:          o.config.VoiceID,
		Input:          text,
		ResponseFormat: o.format.name,
	})
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := o.request(ctx, http.MethodPost, "/audio/speech")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.retry.Do(ctx, o.client, req, body)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, WrapError(providerOpenAI, httpc.ReadError(resp))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", o.config.VoiceID,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   o.config.OutputFormat,
			SampleRate: o.format.sampleRate,
			Channels:   1,
		},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists models to verify the key.
func (o *OpenAI) Health(ctx context.Context) error {
	req, err := o.request(ctx, http.MethodGet, "/models")
	if err != nil {
		return err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return WrapError(providerOpenAI, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerOpenAI, httpc.ReadError(resp))
	}
	return nil
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

func (o *OpenAI) request(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, nil)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	return req, nil
}

var _ Provider = (*OpenAI)(nil)
