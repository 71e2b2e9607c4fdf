package agent

import (
	"context"
	"fmt"

	"director/pkg/agent/llm"
	"director/pkg/director"
	"director/pkg/logx"
	"director/pkg/tokens"
)

// Boundary implements director.ModelInvoker on top of the client factory.
// It is the only place where transcript turns become backend messages;
// everything above it works in controller types.
type Boundary struct {
	factory         *ClientFactory
	defaultProvider string
	logger          *logx.Logger
}

// NewBoundary creates the model-invocation boundary. An empty provider on
// Invoke falls back to defaultProvider.
func NewBoundary(factory *ClientFactory, defaultProvider string) *Boundary {
	return &Boundary{
		factory:         factory,
		defaultProvider: defaultProvider,
		logger:          logx.NewLogger("boundary"),
	}
}

// Invoke implements director.ModelInvoker.
func (b *Boundary) Invoke(ctx context.Context, transcript director.Transcript, newUserText, systemPrompt, provider string) (director.ModelReply, error) {
	if provider == "" {
		provider = b.defaultProvider
	}

	client, err := b.factory.ClientFor(provider)
	if err != nil {
		return director.ModelReply{}, fmt.Errorf("no backend for provider %s: %w", provider, err)
	}

	pc := b.factory.config.LLM.Providers[provider]
	req := llm.NewCompletionRequest(buildMessages(transcript, newUserText, systemPrompt))
	if pc.MaxTokens > 0 {
		req.MaxTokens = pc.MaxTokens
	}
	if pc.Temperature > 0 {
		req.Temperature = float32(pc.Temperature)
	}

	b.logger.Debug("invoking %s (%s), %d transcript turns", provider, client.ModelName(), len(transcript))

	resp, err := client.Complete(ctx, req)
	if err != nil {
		return director.ModelReply{}, err
	}

	usage := &director.Usage{}
	if resp.Usage != nil {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
	} else {
		for i := range req.Messages {
			usage.PromptTokens += tokens.CountSimple(req.Messages[i].Content)
		}
		usage.CompletionTokens = tokens.CountSimple(resp.Content)
	}

	return director.ModelReply{
		Text:     resp.Content,
		Usage:    usage,
		Provider: provider,
	}, nil
}

// buildMessages flattens the system prompt, transcript, and new user text
// into one message list. Role mapping is mechanical; alternation and other
// provider quirks are each client's problem.
func buildMessages(transcript director.Transcript, newUserText, systemPrompt string) []llm.CompletionMessage {
	messages := make([]llm.CompletionMessage, 0, len(transcript)+2)
	if systemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(systemPrompt))
	}
	for i := range transcript {
		switch transcript[i].Role {
		case director.RoleAssistant:
			messages = append(messages, llm.NewAssistantMessage(transcript[i].Text))
		default:
			messages = append(messages, llm.NewUserMessage(transcript[i].Text))
		}
	}
	return append(messages, llm.NewUserMessage(newUserText))
}
