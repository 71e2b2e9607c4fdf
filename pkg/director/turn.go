// Package director implements the phase-gated conversation controller that
// fronts the model-invocation boundary for the production assistant.
//
// The controller is stateless across calls: every piece of control state
// (active phase, open gate, whether a phase jump was accepted) is recomputed
// each turn from the transcript the caller sends. Nothing survives between
// invocations, so the controller can be replicated or restarted freely.
package director

import (
	"context"
	"fmt"
	"strings"
)

// Role identifies the author of a transcript turn.
type Role string

const (
	// RoleUser marks a turn written by the human caller.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the assistant.
	RoleAssistant Role = "assistant"
)

// Turn is a single transcript entry. Immutable once created.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is the ordered conversation history, oldest first. The caller
// owns it and resends it whole on every turn; the controller only reads it.
// Roles are not guaranteed to alternate and the controller must tolerate any
// ordering.
type Transcript []Turn

// Validate rejects transcripts with unknown roles. Runs before any
// state-machine logic so a malformed request never reaches a classifier.
func (t Transcript) Validate() error {
	for i := range t {
		switch t[i].Role {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("turn %d has invalid role %q", i, t[i].Role)
		}
	}
	return nil
}

// WithUser returns a copy of the transcript with text appended as a user
// turn. The receiver is never mutated.
func (t Transcript) WithUser(text string) Transcript {
	out := make(Transcript, 0, len(t)+1)
	out = append(out, t...)
	return append(out, Turn{Role: RoleUser, Text: text})
}

// lastAssistantText returns the text of the most recent assistant turn.
func lastAssistantText(t Transcript) (string, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleAssistant {
			return t[i].Text, true
		}
	}
	return "", false
}

// userText concatenates every user turn, lowercased, for transcript-wide
// classifiers.
func userText(t Transcript) string {
	var b strings.Builder
	for i := range t {
		if t[i].Role == RoleUser {
			b.WriteString(strings.ToLower(t[i].Text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Usage is the token accounting reported for a model-backed turn.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ModelReply is what the model-invocation boundary returns for one turn.
type ModelReply struct {
	Text     string
	Usage    *Usage
	Provider string
}

// ModelInvoker is the boundary contract: send the message history plus a
// system prompt to a model backend and get text back. An empty provider
// selects the boundary's default backend. Implementations own their own
// timeout and retry policy; the controller never retries and never
// reinterprets a boundary failure.
type ModelInvoker interface {
	Invoke(ctx context.Context, transcript Transcript, newUserText, systemPrompt, provider string) (ModelReply, error)
}
