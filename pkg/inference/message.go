package inference

import "strings"

// Role is the speaker of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SingleTurn frames one user utterance with a system prompt. An empty
// system prompt is omitted. The assistant keeps no memory between
// utterances, so this is the only shape it sends.
func SingleTurn(system, user string) []Message {
	if system == "" {
		return []Message{NewUserMessage(user)}
	}
	return []Message{NewSystemMessage(system), NewUserMessage(user)}
}

// Text returns the trimmed reply, or "" when the response carries none.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Message.Content)
}
