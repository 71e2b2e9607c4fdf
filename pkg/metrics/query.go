// Package metrics provides services for querying and aggregating usage
// metrics from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ProviderUsage represents aggregated token and cost totals for one backend
// provider.
type ProviderUsage struct {
	Provider         string  `json:"provider"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost_usd"`
}

// QueryService provides methods to query usage metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetProviderUsage retrieves aggregated token and cost totals for one
// provider across all models.
func (q *QueryService) GetProviderUsage(ctx context.Context, provider string) (*ProviderUsage, error) {
	usage := &ProviderUsage{
		Provider: provider,
	}

	promptQuery := fmt.Sprintf(`sum(director_llm_tokens_total{provider=%q, type="prompt"})`, provider)
	promptResult, _, err := q.queryAPI.Query(ctx, promptQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if vector, ok := promptResult.(model.Vector); ok && len(vector) > 0 {
		usage.PromptTokens = int64(vector[0].Value)
	}

	completionQuery := fmt.Sprintf(`sum(director_llm_tokens_total{provider=%q, type="completion"})`, provider)
	completionResult, _, err := q.queryAPI.Query(ctx, completionQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	if vector, ok := completionResult.(model.Vector); ok && len(vector) > 0 {
		usage.CompletionTokens = int64(vector[0].Value)
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	costQuery := fmt.Sprintf(`sum(director_llm_cost_usd_total{provider=%q})`, provider)
	costResult, _, err := q.queryAPI.Query(ctx, costQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query total cost: %w", err)
	}
	if vector, ok := costResult.(model.Vector); ok && len(vector) > 0 {
		usage.TotalCost = float64(vector[0].Value)
	}

	return usage, nil
}

// GetUsageByProvider retrieves totals broken down by provider, discovering
// the provider set from the token counter itself.
func (q *QueryService) GetUsageByProvider(ctx context.Context) (map[string]*ProviderUsage, error) {
	result := make(map[string]*ProviderUsage)

	providersQuery := `group by (provider) (director_llm_tokens_total)`
	providersResult, _, err := q.queryAPI.Query(ctx, providersQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}

	var providers []string
	if vector, ok := providersResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["provider"]; ok {
				providers = append(providers, string(name))
			}
		}
	}

	for _, provider := range providers {
		usage, err := q.GetProviderUsage(ctx, provider)
		if err != nil {
			return nil, err
		}
		result[provider] = usage
	}

	return result, nil
}
