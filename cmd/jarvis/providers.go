package main

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-jarvis/internal/config"
	"github.com/teslashibe/go-jarvis/internal/log"
	"github.com/teslashibe/go-jarvis/pkg/artifact"
	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/intent"
	"github.com/teslashibe/go-jarvis/pkg/pipeline"
	"github.com/teslashibe/go-jarvis/pkg/respond"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

// providers holds the process-wide collaborators.
type providers struct {
	transcoder transcode.Transcoder
	stt        stt.Provider
	llm        inference.Provider
	tts        tts.Provider
	artifacts  artifact.Store
	respond    *respond.Generator
	pcm        transcode.Spec
}

func buildProviders(ctx context.Context, cfg *config.Config) (*providers, error) {
	p := &providers{
		transcoder: transcode.New(cfg.Transcode.Backend,
			transcode.WithFFmpegPath(cfg.Transcode.FFmpegPath),
			transcode.WithLogger(log.Component("transcode")),
		),
		pcm: transcode.Spec{
			SampleRate: cfg.Transcode.SampleRate,
			Encoding:   transcode.EncodingLinear16,
			Channels:   1,
		},
	}

	recognizer, err := stt.NewGoogle(ctx, googleSTTOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("speech recognition: %w", err)
	}
	p.stt = recognizer

	llm, err := buildLLM(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("language model: %w", err)
	}
	p.llm = llm

	synth, err := buildTTS(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	p.tts = synth

	store, err := artifact.New(cfg.Artifacts.Backend,
		artifact.WithTTL(cfg.Artifacts.TTL),
		artifact.WithPrefix(cfg.Artifacts.KeyPrefix),
		artifact.WithRedisURL(cfg.Artifacts.RedisURL),
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	p.artifacts = store

	p.respond = newResponder(p.llm)
	return p, nil
}

// newResponder leaves the model unset so each LLM provider, including every
// member of a chain, asks for the model it was configured with.
func newResponder(llm inference.Provider) *respond.Generator {
	return respond.NewGenerator(llm,
		respond.WithStats(respond.NewCPUStats()),
		respond.WithLogger(log.Component("respond")),
	)
}

func (p *providers) deps() pipeline.Deps {
	return pipeline.Deps{
		Transcoder:  p.transcoder,
		Recognizer:  p.stt,
		Router:      intent.NewRouter(),
		Responder:   p.respond,
		Synthesizer: p.tts,
		Artifacts:   p.artifacts,
	}
}

// Close releases every collaborator that was built.
func (p *providers) Close() {
	if p.stt != nil {
		p.stt.Close()
	}
	if p.llm != nil {
		p.llm.Close()
	}
	if p.tts != nil {
		p.tts.Close()
	}
	if p.artifacts != nil {
		p.artifacts.Close()
	}
}

func googleSTTOptions(cfg *config.Config) []stt.Option {
	opts := []stt.Option{stt.WithLogger(log.Component("stt"))}
	if cfg.Google.CredentialsFile != "" {
		opts = append(opts, stt.WithCredentialsFile(cfg.Google.CredentialsFile))
	}
	if cfg.Google.APIKey != "" {
		opts = append(opts, stt.WithAPIKey(cfg.Google.APIKey))
	}
	return opts
}

func buildLLM(ctx context.Context, cfg *config.Config) (inference.Provider, error) {
	openai := func() (inference.Provider, error) {
		c, err := inference.NewClient(
			inference.WithBaseURL(cfg.LLM.OpenAIBaseURL),
			inference.WithAPIKey(cfg.LLM.OpenAIKey),
			inference.WithModel(cfg.LLM.OpenAIModel),
			inference.WithTimeout(cfg.LLM.Timeout),
			inference.WithLogger(log.Component("inference.openai")),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	gemini := func() (inference.Provider, error) {
		g, err := inference.NewGemini(ctx,
			inference.WithAPIKey(cfg.LLM.GeminiKey),
			inference.WithModel(cfg.LLM.GeminiModel),
			inference.WithTimeout(cfg.LLM.Timeout),
			inference.WithLogger(log.Component("inference.gemini")),
		)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	switch cfg.LLM.Provider {
	case "gemini":
		return gemini()
	case "chain":
		primary, err := openai()
		if err != nil {
			return nil, err
		}
		fallback, err := gemini()
		if err != nil {
			primary.Close()
			return nil, err
		}
		chain, err := inference.NewChainWithLogger(log.L(), primary, fallback)
		if err != nil {
			return nil, err
		}
		return chain, nil
	default:
		return openai()
	}
}

func buildTTS(ctx context.Context, cfg *config.Config) (tts.Provider, error) {
	google := func() (tts.Provider, error) {
		opts := []tts.Option{
			tts.WithVoice(cfg.Google.LanguageCode, tts.Gender(cfg.Google.VoiceGender)),
			tts.WithLogger(log.Component("tts.google")),
		}
		if cfg.Google.VoiceName != "" {
			opts = append(opts, tts.WithVoiceName(cfg.Google.VoiceName))
		}
		if cfg.Google.CredentialsFile != "" {
			opts = append(opts, tts.WithCredentialsFile(cfg.Google.CredentialsFile))
		}
		if cfg.Google.APIKey != "" {
			opts = append(opts, tts.WithAPIKey(cfg.Google.APIKey))
		}
		g, err := tts.NewGoogle(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	openai := func() (tts.Provider, error) {
		o, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.LLM.OpenAIKey),
			tts.WithBaseURL(cfg.LLM.OpenAIBaseURL),
			tts.WithVoiceName(cfg.TTS.OpenAIVoice),
			tts.WithLogger(log.Component("tts.openai")),
		)
		if err != nil {
			return nil, err
		}
		return o, nil
	}

	switch cfg.TTS.Provider {
	case "openai":
		return openai()
	case "chain":
		primary, err := google()
		if err != nil {
			return nil, err
		}
		fallback, err := openai()
		if err != nil {
			primary.Close()
			return nil, err
		}
		chain, err := tts.NewChainWithLogger(log.L(), primary, fallback)
		if err != nil {
			return nil, err
		}
		return chain, nil
	default:
		return google()
	}
}
