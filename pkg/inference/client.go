package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

const providerClient = "openai"

// Client talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, Ollama, vLLM, Groq).
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	retry   httpc.Retry
	logger  *slog.Logger
}

// NewClient creates a new inference client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerClient, err)
	}

	logger := cfg.Logger.With("component", "inference.openai")
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		retry:   httpc.Retry{Max: cfg.MaxRetries, Delay: cfg.RetryDelay, Logger: logger},
		logger:  logger,
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.payload(req))
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := c.request(ctx, http.MethodPost, "/chat/completions")
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.retry.Do(ctx, c.http, httpReq, payload)
	if err != nil {
		return nil, WrapError(providerClient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, WrapError(providerClient, httpc.ReadError(resp))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, WrapError(providerClient, fmt.Errorf("no choices returned"))
	}

	choice := result.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, WrapError(providerClient, ErrEmptyResponse)
	}

	latency := time.Since(start).Milliseconds()
	c.logger.Debug("chat completed",
		"model", result.Model,
		"tokens", result.Usage.TotalTokens,
		"latency_ms", latency,
	)

	return &ChatResponse{
		Message:      NewAssistantMessage(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage:        Usage(result.Usage),
		Model:        result.Model,
		LatencyMs:    latency,
	}, nil
}

// Health lists models, which fails fast on a bad key or an unreachable host.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.request(ctx, http.MethodGet, "/models")
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WrapError(providerClient, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerClient, httpc.ReadError(resp))
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) request(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("create request: %w", err))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// payload fills request defaults from the client configuration.
func (c *Client) payload(req *ChatRequest) chatPayload {
	p := chatPayload{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for i, msg := range req.Messages {
		p.Messages[i] = chatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	if p.Model == "" {
		p.Model = c.config.Model
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = c.config.MaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = c.config.Temperature
	}
	return p
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

var _ Provider = (*Client)(nil)
