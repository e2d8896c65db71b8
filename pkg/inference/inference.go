// Package inference answers open-domain questions through a chat model.
//
// Provider hides the backend: Client speaks the OpenAI-compatible
// /chat/completions protocol (OpenAI, Ollama, vLLM, Groq), Gemini uses the
// generative-ai-go SDK, and Chain falls back across them.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: inference.SingleTurn("Keep your responses concise.", transcript),
//	})
//	reply := resp.Text()
package inference

import "context"

// Provider is the chat interface every backend satisfies.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest is one completion call.
type ChatRequest struct {
	Messages []Message // system framing first

	// Zero values fall back to the provider configuration.
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the model's answer.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
	Model        string
	LatencyMs    int64
}

// Usage is the token accounting reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
