package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"director/pkg/agent/llm"
	"director/pkg/agent/llmerrors"
)

func fastPolicy(maxAttempts int) *Policy {
	return NewPolicy(Config{
		MaxAttempts:   maxAttempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}, nil)
}

// flakyClient fails with err until the given attempt succeeds.
type flakyClient struct {
	failUntil int
	err       error
	calls     int
}

func (f *flakyClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	if f.calls < f.failUntil {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (f *flakyClient) ModelName() string { return "test-model" }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyClient{
		failUntil: 3,
		err:       llmerrors.NewError(llmerrors.ErrorTypeTransient, "flake"),
	}
	client := Middleware(fastPolicy(3))(inner)

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryDoesNotRetryAuthErrors(t *testing.T) {
	inner := &flakyClient{
		failUntil: 10,
		err:       llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"),
	}
	client := Middleware(fastPolicy(5))(inner)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, llmerrors.ErrorTypeAuth, llmerrors.TypeOf(err))
}

func TestRetryExhaustionYieldsServiceUnavailable(t *testing.T) {
	inner := &flakyClient{
		failUntil: 10,
		err:       llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "throttled"),
	}
	client := Middleware(fastPolicy(3))(inner)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, llmerrors.ErrorTypeServiceUnavailable, llmerrors.TypeOf(err))
}

func TestRetryDoesNotRetryUnclassifiedErrors(t *testing.T) {
	inner := &flakyClient{failUntil: 10, err: errors.New("plain failure")}
	client := Middleware(fastPolicy(5))(inner)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestShouldRetryCancelledContext(t *testing.T) {
	assert.False(t, ShouldRetry(context.Canceled))
	assert.False(t, ShouldRetry(context.DeadlineExceeded))
	assert.False(t, ShouldRetry(nil))
	assert.True(t, ShouldRetry(llmerrors.NewError(llmerrors.ErrorTypeTransient, "x")))
}

// Unknown errors carry a one-retry budget that overrides a larger configured
// maximum; rate limits get the full allowance.
func TestRetryUnknownErrorsGetOneRetry(t *testing.T) {
	inner := &flakyClient{
		failUntil: 10,
		err:       llmerrors.NewError(llmerrors.ErrorTypeUnknown, "mystery"),
	}
	client := Middleware(fastPolicy(5))(inner)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Equal(t, llmerrors.DefaultUnknownRetries+1, inner.calls)
	assert.Equal(t, llmerrors.ErrorTypeServiceUnavailable, llmerrors.TypeOf(err))
}

func TestAttemptLimit(t *testing.T) {
	p := fastPolicy(5)

	assert.Equal(t, 5, p.AttemptLimit(errors.New("plain")))
	assert.Equal(t, 5, p.AttemptLimit(llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "x")))
	assert.Equal(t, 2, p.AttemptLimit(llmerrors.NewError(llmerrors.ErrorTypeUnknown, "x")))
	assert.Equal(t, 1, p.AttemptLimit(llmerrors.NewError(llmerrors.ErrorTypeAuth, "x")))
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2.0,
	}, nil)

	assert.Equal(t, time.Duration(0), p.CalculateDelay(1))
	assert.Equal(t, 100*time.Millisecond, p.CalculateDelay(2))
	assert.Equal(t, 200*time.Millisecond, p.CalculateDelay(3))
	// Capped at MaxDelay.
	assert.Equal(t, 300*time.Millisecond, p.CalculateDelay(4))
}

// Jitter must swing both ways, not only shave the delay.
func TestCalculateDelayJitterBothDirections(t *testing.T) {
	p := NewPolicy(Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}, nil)

	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		d := p.CalculateDelay(2)
		require.True(t, d == 90*time.Millisecond || d == 110*time.Millisecond,
			"jittered delay %v outside the 10%% band", d)
		seen[d] = true
	}
	assert.True(t, seen[110*time.Millisecond], "positive jitter never applied")
	assert.True(t, seen[90*time.Millisecond], "negative jitter never applied")
}
