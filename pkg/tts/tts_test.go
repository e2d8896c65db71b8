package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-jarvis/internal/httpc"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(result.Audio) != string(tts.MockAudio("Hello world")) {
			t.Errorf("unexpected audio %q", result.Audio)
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.Encoding != tts.EncodingMP3 {
			t.Errorf("expected mp3, got %s", result.Format.Encoding)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if len(mock.Calls()) != 2 {
			t.Errorf("expected 2 calls, got %d", len(mock.Calls()))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
		if last := mock.LastCall(); last.Method != "Health" {
			t.Errorf("expected last call Health, got %s", last.Method)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(ctx); err == nil {
		t.Error("expected health error")
	}
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)

	t.Run("Synthesize has latency", func(t *testing.T) {
		start := time.Now()
		_, err := mock.Synthesize(context.Background(), "Hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("expected at least 50ms latency, got %v", elapsed)
		}
	})

	t.Run("Context cancellation works", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context deadline error, got %v", err)
		}
	})
}

func TestFunctionalOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithVoice("en-GB", tts.GenderFemale),
		tts.WithVoiceName("en-GB-Neural2-A"),
		tts.WithModel("test-model"),
		tts.WithTimeout(5*time.Second),
		tts.WithOutputFormat(tts.EncodingOggOpus),
	)

	if cfg.LanguageCode != "en-GB" || cfg.Gender != tts.GenderFemale {
		t.Errorf("unexpected voice %s/%s", cfg.LanguageCode, cfg.Gender)
	}
	if cfg.VoiceID != "en-GB-Neural2-A" {
		t.Errorf("expected voice name, got %s", cfg.VoiceID)
	}
	if cfg.ModelID != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.ModelID)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.OutputFormat != tts.EncodingOggOpus {
		t.Errorf("expected ogg format, got %s", cfg.OutputFormat)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := tts.DefaultConfig()
	if cfg.LanguageCode != "en-US" || cfg.Gender != tts.GenderMale || cfg.OutputFormat != tts.EncodingMP3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != tts.ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestEncodingMIMEType(t *testing.T) {
	if tts.EncodingMP3.MIMEType() != "audio/mpeg" || tts.EncodingOggOpus.MIMEType() != "audio/ogg" {
		t.Error("unexpected MIME types")
	}
}

func TestAPIError(t *testing.T) {
	t.Run("status errors become APIError", func(t *testing.T) {
		err := tts.WrapError("google", &httpc.StatusError{StatusCode: 429, Message: "rate limited"})
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if !apiErr.IsRateLimited() || !apiErr.IsRetryable() || apiErr.Provider != "google" {
			t.Errorf("unexpected api error %+v", apiErr)
		}
	})

	t.Run("Error message format", func(t *testing.T) {
		err := &tts.APIError{
			StatusError: httpc.StatusError{StatusCode: 400, Message: "bad request", Code: "invalid_input"},
			Provider:    "google",
		}
		if msg := err.Error(); msg != "tts [google]: API error 400 (invalid_input): bad request" {
			t.Errorf("unexpected error message: %s", msg)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("NewChain requires providers", func(t *testing.T) {
		if _, err := tts.NewChain(); err != tts.ErrProviderUnavailable {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("First provider succeeds", func(t *testing.T) {
		mock1 := tts.NewMock()
		mock2 := tts.NewMock()

		chain, _ := tts.NewChain(mock1, mock2)
		defer chain.Close()

		if _, err := chain.Synthesize(ctx, "Hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock1.CallCount("Synthesize") != 1 || mock2.CallCount("Synthesize") != 0 {
			t.Error("expected only the first provider to be called")
		}
	})

	t.Run("Fallback on failure", func(t *testing.T) {
		chain, _ := tts.NewChain(tts.WithError(errors.New("provider 1 failed")), tts.NewMock())
		defer chain.Close()

		result, err := chain.Synthesize(ctx, "Hello")
		if err != nil || result == nil {
			t.Fatalf("expected fallback result, got %v", err)
		}
	})

	t.Run("All providers fail", func(t *testing.T) {
		chain, _ := tts.NewChain(tts.WithError(errors.New("fail 1")), tts.WithError(errors.New("fail 2")))
		defer chain.Close()

		_, err := chain.Synthesize(ctx, "Hello")
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Fatalf("expected chain error with 2 entries, got %v", err)
		}
		if !errors.Is(err, tts.ErrAllProvidersFailed) {
			t.Error("expected ErrAllProvidersFailed")
		}
	})

	t.Run("Health checks all providers", func(t *testing.T) {
		chain, _ := tts.NewChain(tts.WithError(errors.New("down")), tts.NewMock())
		if err := chain.Health(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestProviderError(t *testing.T) {
	inner := errors.New("connection failed")
	err := tts.WrapError("google", inner)

	if err.Error() != "tts [google]: connection failed" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	var pe *tts.ProviderError
	if !errors.As(err, &pe) || pe.Provider != "google" {
		t.Error("expected ProviderError for google")
	}
	if !errors.Is(err, inner) {
		t.Error("expected inner error in chain")
	}
}

func newGoogle(t *testing.T, handler http.HandlerFunc) *tts.Google {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := tts.NewGoogle(context.Background(),
		tts.WithBaseURL(server.URL+"/"),
		tts.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	return g
}

func TestGoogleSynthesize(t *testing.T) {
	clip := []byte("ID3 fake mp3 bytes")

	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body struct {
			Input struct {
				Text string `json:"text"`
			} `json:"input"`
			Voice struct {
				LanguageCode string `json:"languageCode"`
				SsmlGender   string `json:"ssmlGender"`
			} `json:"voice"`
			AudioConfig struct {
				AudioEncoding string `json:"audioEncoding"`
			} `json:"audioConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Input.Text != "Hello there" {
			t.Errorf("unexpected text %q", body.Input.Text)
		}
		if body.Voice.LanguageCode != "en-US" || body.Voice.SsmlGender != "MALE" {
			t.Errorf("unexpected voice %+v", body.Voice)
		}
		if body.AudioConfig.AudioEncoding != "MP3" {
			t.Errorf("unexpected encoding %s", body.AudioConfig.AudioEncoding)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(clip),
		})
	})

	result, err := g.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != string(clip) {
		t.Errorf("unexpected audio %q", result.Audio)
	}
	if result.Format.Encoding != tts.EncodingMP3 {
		t.Errorf("expected mp3, got %s", result.Format.Encoding)
	}
}

func TestGoogleSynthesizeAPIError(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"code":503,"message":"backend down"}}`)
	})

	_, err := g.Synthesize(context.Background(), "Hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 503 || !apiErr.IsRetryable() {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestGoogleSynthesizeEmptyText(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := g.Synthesize(context.Background(), "  "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["voice"] != tts.VoiceOnyx || body["response_format"] != "mp3" {
			t.Errorf("unexpected payload %v", body)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	o, err := tts.NewOpenAI(
		tts.WithAPIKey("test-key"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(1, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	result, err := o.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", result.Audio)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected one retry, got %d attempts", attempts.Load())
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
