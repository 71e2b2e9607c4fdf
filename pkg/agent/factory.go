// Package agent builds model backend clients with their middleware chains
// and exposes the model-invocation boundary used by the controller.
package agent

import (
	"fmt"
	"sync"

	"director/pkg/agent/internal/llmimpl/anthropic"
	"director/pkg/agent/internal/llmimpl/google"
	"director/pkg/agent/internal/llmimpl/ollama"
	"director/pkg/agent/internal/llmimpl/openai"
	"director/pkg/agent/llm"
	"director/pkg/agent/middleware/metrics"
	"director/pkg/agent/middleware/retry"
	"director/pkg/config"
)

// ClientFactory creates backend clients with properly configured middleware
// chains. Clients are built once per provider and reused; the underlying SDK
// clients are safe for concurrent use.
type ClientFactory struct {
	config   config.Config
	recorder metrics.Recorder

	mu      sync.Mutex
	clients map[string]llm.Client
}

// NewClientFactory creates a factory from the given configuration. A nil
// recorder enables Prometheus metrics on the default registry.
func NewClientFactory(cfg config.Config, recorder metrics.Recorder) *ClientFactory {
	if recorder == nil {
		recorder = metrics.NewPrometheusRecorder()
	}
	return &ClientFactory{
		config:   cfg,
		recorder: recorder,
		clients:  make(map[string]llm.Client),
	}
}

// ClientFor returns the middleware-wrapped client for a provider, building
// it on first use. Safe for concurrent use; request handlers reach it
// directly through the boundary.
func (f *ClientFactory) ClientFor(provider string) (llm.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[provider]; ok {
		return client, nil
	}

	client, err := f.buildClient(provider)
	if err != nil {
		return nil, err
	}
	f.clients[provider] = client
	return client, nil
}

func (f *ClientFactory) buildClient(provider string) (llm.Client, error) {
	pc, ok := f.config.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("no provider config for %s", provider)
	}

	clientCfg := llm.Config{
		ModelName:   pc.Model,
		Host:        pc.Host,
		MaxTokens:   pc.MaxTokens,
		Temperature: float32(pc.Temperature),
	}

	var rawClient llm.Client
	switch provider {
	case config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGoogle:
		apiKey, err := config.GetAPIKey(provider)
		if err != nil {
			return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
		}
		clientCfg.APIKey = apiKey
		if err := clientCfg.Validate(true); err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", provider, err)
		}
		switch provider {
		case config.ProviderAnthropic:
			rawClient = anthropic.NewClient(apiKey, pc.Model)
		case config.ProviderOpenAI:
			rawClient = openai.NewClient(apiKey, pc.Model)
		case config.ProviderGoogle:
			rawClient = google.NewClient(apiKey, pc.Model)
		}
	case config.ProviderOllama:
		host := pc.Host
		if host == "" {
			host, _ = config.GetAPIKey(provider)
		}
		clientCfg.Host = host
		if err := clientCfg.Validate(false); err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", provider, err)
		}
		rawClient = ollama.NewClient(host, pc.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   f.config.LLM.Retry.MaxAttempts,
		InitialDelay:  f.config.LLM.Retry.InitialDelay,
		MaxDelay:      f.config.LLM.Retry.MaxDelay,
		BackoffFactor: f.config.LLM.Retry.BackoffFactor,
		Jitter:        f.config.LLM.Retry.Jitter,
	}, nil)

	// Metrics -> Retry -> RawClient. Metrics sits outermost so a request
	// that exhausts its retry budget is observed once, as a failure.
	return llm.Chain(rawClient,
		metrics.Middleware(provider, f.recorder, config.CalculateCost),
		retry.Middleware(retryPolicy),
	), nil
}
