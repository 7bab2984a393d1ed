// Package llm defines the chat-completion client consumed by the interactive
// loop, with llama.cpp (local GGUF) and Google Gemini backends.
package llm

import "context"

// Message roles used in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient produces a completion for a role-tagged history.
type ChatClient interface {
	// Chat returns the assistant's next reply given the full history.
	Chat(ctx context.Context, history []Message) (string, error)

	// Name identifies the backend for boot diagnostics.
	Name() string

	// Close releases backend resources (subprocesses, connections).
	Close() error
}
