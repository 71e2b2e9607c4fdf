// Package llm defines the types and client interface for language model
// backends used by the model-invocation boundary.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens caps a single reply in the conversation flow.
	DefaultMaxTokens = 4096

	// TemperatureDefault allows some exploration while staying focused on
	// the production-planning domain.
	TemperatureDefault = 0.3
)

// CompletionMessage represents one message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// TokenUsage is the token accounting a backend reports for one completion.
// Some backends omit it; the boundary fills the gap with a tokenizer
// estimate.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionResponse represents a backend's reply to a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string      // Why generation stopped: "end_turn", "stop", "max_tokens", etc.
	Usage      *TokenUsage // Nil when the backend reported no usage block.
}

// Client is the interface every model backend implements.
type Client interface {
	// Complete generates a completion synchronously. The call blocks until
	// the backend answers or ctx is done.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// ModelName returns the backend model identifier.
	ModelName() string
}

// NewCompletionRequest creates a completion request with default limits.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// Config holds the per-backend settings the factory needs.
type Config struct {
	APIKey      string
	ModelName   string
	Host        string // Only used by local backends (ollama).
	MaxTokens   int
	Temperature float32
}

// Validate checks backend configuration before a client is built.
func (c *Config) Validate(needsKey bool) error {
	if needsKey && c.APIKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}
