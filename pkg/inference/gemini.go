package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// Gemini implements Provider on the Gemini SDK.
type Gemini struct {
	client *genai.Client
	config *Config
	logger *slog.Logger
}

// NewGemini creates a Gemini provider. An API key is required.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Model = "gemini-2.0-flash"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("create client: %w", err))
	}

	return &Gemini{
		client: client,
		config: cfg,
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

// Chat sends the final user message with earlier turns as history.
func (g *Gemini) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = g.config.Model
	}

	system, history, last, err := splitMessages(req.Messages)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(modelName)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	temp := req.Temperature
	if temp == 0 {
		temp = g.config.Temperature
	}
	model.SetTemperature(float32(temp))

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	text, finish := responseText(resp)
	if text == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	g.logger.Debug("chat completed",
		"model", modelName,
		"tokens", usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &ChatResponse{
		Message:      NewAssistantMessage(text),
		FinishReason: finish,
		Usage:        usage,
		Model:        modelName,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// Health fetches model metadata to verify the key.
func (g *Gemini) Health(ctx context.Context) error {
	if _, err := g.client.GenerativeModel(g.config.Model).Info(ctx); err != nil {
		return WrapError(providerGemini, fmt.Errorf("health check: %w", err))
	}
	return nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// splitMessages separates system framing, prior turns and the final user turn.
func splitMessages(messages []Message) (system string, history []*genai.Content, last string, err error) {
	var systems []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			systems = append(systems, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("last message must be from the user")
	}

	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	return strings.Join(systems, "\n"), history, turns[len(turns)-1].Content, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", cand.FinishReason.String()
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), cand.FinishReason.String()
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)
