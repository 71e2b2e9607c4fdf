package metrics

import (
	"context"
	"time"

	"director/pkg/agent/llm"
	"director/pkg/agent/llmerrors"
	"director/pkg/tokens"
)

// CostFunc prices a completed request in USD from its token counts.
type CostFunc func(model string, promptTokens, completionTokens int) float64

// Middleware wraps a backend client and records one observation per request.
// When the backend reports no usage block the token counts are estimated
// with the tokenizer so dashboards never show zero-cost traffic.
func Middleware(provider string, recorder Recorder, cost CostFunc) llm.Middleware {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if cost == nil {
		cost = func(string, int, int) float64 { return 0 }
	}

	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				model := next.ModelName()

				if err != nil {
					recorder.ObserveRequest(provider, model, 0, 0, 0, false, llmerrors.TypeOf(err).String(), duration)
					return resp, err
				}

				promptTokens, completionTokens := usageFor(req, resp)
				recorder.ObserveRequest(provider, model,
					promptTokens, completionTokens,
					cost(model, promptTokens, completionTokens),
					true, "", duration)

				return resp, nil
			},
			next.ModelName,
		)
	}
}

func usageFor(req llm.CompletionRequest, resp llm.CompletionResponse) (prompt, completion int) {
	if resp.Usage != nil {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}

	for _, msg := range req.Messages {
		prompt += tokens.CountSimple(msg.Content)
	}
	return prompt, tokens.CountSimple(resp.Content)
}
