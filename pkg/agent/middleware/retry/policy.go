// Package retry provides retry middleware with exponential backoff for
// model backend calls. Retry lives in the boundary: the controller above it
// never retries.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"director/pkg/agent/llmerrors"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts   int           `yaml:"max_attempts"`   // Including the initial attempt.
	InitialDelay  time.Duration `yaml:"initial_delay"`  // Delay before the first retry.
	MaxDelay      time.Duration `yaml:"max_delay"`      // Cap on backoff growth.
	BackoffFactor float64       `yaml:"backoff_factor"` // Exponential multiplier.
	Jitter        bool          `yaml:"jitter"`         // Spread retries to avoid thundering herd.
}

// DefaultConfig provides reasonable defaults for backend retries.
//
//nolint:gochecknoglobals // Sensible default config pattern.
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier decides whether an error is worth retrying.
type Classifier func(error) bool

// ShouldRetry is the default classifier. It trusts the structured
// classification the backend clients attach and never retries a canceled
// context.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	// Unclassified errors are not retried.
	return false
}

// Policy couples a retry configuration with a classifier.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy creates a retry policy. A nil classifier falls back to
// ShouldRetry.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{Config: config, Classifier: classifier}
}

// CalculateDelay computes the backoff delay before the given attempt.
// Attempt 1 is the initial call and has no delay.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}

	if p.Config.Jitter && delay > 0 {
		jitterFactor := (time.Now().UnixNano()%2)*2 - 1 // -1 or 1
		jitter := time.Duration(float64(delay) * 0.1 * float64(jitterFactor))
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}

	return delay
}

// ShouldRetry applies the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// AttemptLimit returns the attempt budget for the given error. A classified
// error's per-type budget can tighten the configured maximum but never raise
// it, so unknown errors burn at most one retry while rate limits may use the
// full allowance.
func (p *Policy) AttemptLimit(err error) int {
	limit := p.Config.MaxAttempts

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		if typeLimit := llmErr.GetRetryConfig().MaxRetries + 1; typeLimit < limit {
			limit = typeLimit
		}
	}
	return limit
}
