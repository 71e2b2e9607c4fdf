package retry

import (
	"context"
	"fmt"
	"time"

	"director/pkg/agent/llm"
	"director/pkg/agent/llmerrors"
)

// Middleware wraps a backend client with retry logic. Failed requests are
// retried per the policy with exponential backoff; exhausting the budget on a
// retryable error yields a service_unavailable classification so callers can
// distinguish "backend is down" from a single flake.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error
				attempts := 0

				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					if attempt > 1 {
						if delay := policy.CalculateDelay(attempt); delay > 0 {
							select {
							case <-ctx.Done():
								return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
							case <-time.After(delay):
							}
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err
					attempts = attempt

					if !policy.ShouldRetry(err) {
						break
					}
					// Per-type budgets can end the loop before the configured
					// maximum.
					if attempt >= policy.AttemptLimit(err) {
						break
					}
				}

				if policy.ShouldRetry(lastErr) {
					return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, attempts)
				}
				return llm.CompletionResponse{}, lastErr
			},
			next.ModelName,
		)
	}
}
