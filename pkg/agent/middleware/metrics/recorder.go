// Package metrics provides Prometheus-based metrics for model backend
// operations.
package metrics

import "time"

// Recorder receives one observation per completed backend request.
type Recorder interface {
	ObserveRequest(
		provider, model string,
		promptTokens, completionTokens int,
		cost float64,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NopRecorder discards all observations. Used in tests and when metrics are
// disabled.
type NopRecorder struct{}

// ObserveRequest implements Recorder.
func (NopRecorder) ObserveRequest(string, string, int, int, float64, bool, string, time.Duration) {}
