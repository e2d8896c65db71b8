// Package config loads go-jarvis server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file (if present), then process environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default server configuration, matching the browser client defaults.
const (
	DefaultPort           = 5002
	DefaultAllowedOrigins = "http://localhost:3000"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Google    GoogleConfig    `yaml:"google"`
	LLM       LLMConfig       `yaml:"llm"`
	TTS       TTSConfig       `yaml:"tts"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Artifacts ArtifactConfig  `yaml:"artifacts"`
}

// ServerConfig controls the HTTP/websocket listener.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"` // comma separated
	Debug          bool   `yaml:"debug"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// GoogleConfig holds credentials and voice settings for Google Cloud speech.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	APIKey          string `yaml:"api_key"`
	LanguageCode    string `yaml:"language_code"`
	VoiceGender     string `yaml:"voice_gender"`
	VoiceName       string `yaml:"voice_name"`
}

// LLMConfig selects the language-model collaborator.
type LLMConfig struct {
	Provider      string        `yaml:"provider"` // "openai", "gemini", "chain"
	OpenAIKey     string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	GeminiKey     string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	Timeout       time.Duration `yaml:"timeout"`
}

// TTSConfig selects the synthesis collaborator.
type TTSConfig struct {
	Provider    string `yaml:"provider"` // "google", "openai", "chain"
	OpenAIVoice string `yaml:"openai_voice"`
}

// TranscodeConfig selects the transcoder backend.
type TranscodeConfig struct {
	Backend    string `yaml:"backend"` // "auto", "native", "ffmpeg"
	FFmpegPath string `yaml:"ffmpeg_path"`
	SampleRate int    `yaml:"sample_rate"`
}

// PipelineConfig controls per-session orchestration.
type PipelineConfig struct {
	Policy       string        `yaml:"policy"` // "reorder" or "strict"
	MaxInFlight  int           `yaml:"max_in_flight"`
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

// ArtifactConfig selects where transient utterance artifacts live.
type ArtifactConfig struct {
	Backend   string        `yaml:"backend"` // "memory" or "redis"
	RedisURL  string        `yaml:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           DefaultPort,
			AllowedOrigins: DefaultAllowedOrigins,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Google: GoogleConfig{
			LanguageCode: "en-US",
			VoiceGender:  "MALE",
		},
		LLM: LLMConfig{
			Provider:      "openai",
			OpenAIBaseURL: "https://api.openai.com/v1",
			OpenAIModel:   "gpt-4o-mini",
			GeminiModel:   "gemini-2.0-flash",
			Timeout:       30 * time.Second,
		},
		TTS: TTSConfig{
			Provider:    "google",
			OpenAIVoice: "onyx",
		},
		Transcode: TranscodeConfig{
			Backend:    "auto",
			FFmpegPath: "ffmpeg",
			SampleRate: 48000,
		},
		Pipeline: PipelineConfig{
			Policy:       "reorder",
			MaxInFlight:  4,
			StageTimeout: 20 * time.Second,
		},
		Artifacts: ArtifactConfig{
			Backend:   "memory",
			KeyPrefix: "jarvis",
			TTL:       5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), any .env file in the working directory, and the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotenv loads .env files without overriding variables already set.
// Missing files are not an error.
func loadDotenv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.Debug = getEnvBool("DEBUG", c.Server.Debug)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Google.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Google.CredentialsFile)
	c.Google.APIKey = getEnv("GOOGLE_API_KEY", c.Google.APIKey)
	c.Google.LanguageCode = getEnv("SPEECH_LANGUAGE_CODE", c.Google.LanguageCode)
	c.Google.VoiceGender = getEnv("TTS_VOICE_GENDER", c.Google.VoiceGender)
	c.Google.VoiceName = getEnv("TTS_VOICE_NAME", c.Google.VoiceName)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.OpenAIKey = getEnv("OPENAI_API_KEY", c.LLM.OpenAIKey)
	c.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.OpenAIModel = getEnv("OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.GeminiKey = getEnv("GEMINI_API_KEY", c.LLM.GeminiKey)
	c.LLM.GeminiModel = getEnv("GEMINI_MODEL", c.LLM.GeminiModel)
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.TTS.Provider = getEnv("TTS_PROVIDER", c.TTS.Provider)
	c.TTS.OpenAIVoice = getEnv("OPENAI_TTS_VOICE", c.TTS.OpenAIVoice)

	c.Transcode.Backend = getEnv("TRANSCODER", c.Transcode.Backend)
	c.Transcode.FFmpegPath = getEnv("FFMPEG_PATH", c.Transcode.FFmpegPath)
	c.Transcode.SampleRate = getEnvInt("TRANSCODE_SAMPLE_RATE", c.Transcode.SampleRate)

	c.Pipeline.Policy = getEnv("DELIVERY_POLICY", c.Pipeline.Policy)
	c.Pipeline.MaxInFlight = getEnvInt("MAX_IN_FLIGHT", c.Pipeline.MaxInFlight)
	c.Pipeline.StageTimeout = getEnvDuration("STAGE_TIMEOUT", c.Pipeline.StageTimeout)

	c.Artifacts.Backend = getEnv("ARTIFACT_BACKEND", c.Artifacts.Backend)
	c.Artifacts.RedisURL = getEnv("REDIS_URL", c.Artifacts.RedisURL)
	c.Artifacts.KeyPrefix = getEnv("ARTIFACT_KEY_PREFIX", c.Artifacts.KeyPrefix)
	c.Artifacts.TTL = getEnvDuration("ARTIFACT_TTL", c.Artifacts.TTL)
}

// Origins returns the allowed CORS origins as a trimmed list.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.LLM.Provider {
	case "openai", "gemini", "chain":
	default:
		return fmt.Errorf("llm provider must be openai, gemini or chain, got %q", c.LLM.Provider)
	}

	switch c.TTS.Provider {
	case "google", "openai", "chain":
	default:
		return fmt.Errorf("tts provider must be google, openai or chain, got %q", c.TTS.Provider)
	}

	switch c.Transcode.Backend {
	case "auto", "native", "ffmpeg":
	default:
		return fmt.Errorf("transcode backend must be auto, native or ffmpeg, got %q", c.Transcode.Backend)
	}
	if c.Transcode.SampleRate <= 0 {
		return fmt.Errorf("transcode sample rate must be positive, got %d", c.Transcode.SampleRate)
	}

	switch c.Pipeline.Policy {
	case "reorder", "strict":
	default:
		return fmt.Errorf("pipeline policy must be reorder or strict, got %q", c.Pipeline.Policy)
	}
	if c.Pipeline.MaxInFlight < 1 {
		return fmt.Errorf("pipeline max_in_flight must be at least 1, got %d", c.Pipeline.MaxInFlight)
	}
	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("pipeline stage_timeout must be positive")
	}

	switch c.Artifacts.Backend {
	case "memory":
	case "redis":
		if c.Artifacts.RedisURL == "" {
			return fmt.Errorf("artifacts redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("artifacts backend must be memory or redis, got %q", c.Artifacts.Backend)
	}
	if c.Artifacts.TTL <= 0 {
		return fmt.Errorf("artifacts ttl must be positive")
	}

	return nil
}
