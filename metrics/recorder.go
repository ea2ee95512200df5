// Package metrics exposes logmap's observability hooks.
//
// Components receive a [Recorder]; the default [NoopRecorder] does nothing,
// and [PrometheusRecorder] registers real collectors on a caller-supplied
// registry.
package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailure  ResultLabel = "failure"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives scope, job and iteration measurements. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveScopeDuration(label string, d time.Duration)
	IncScopeResult(result ResultLabel)
	ObserveJobDuration(mode string, d time.Duration)
	IncJobResult(mode string, result ResultLabel)
	SetWorkers(mode string, n int)
	AddItems(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveScopeDuration(string, time.Duration) {}
func (NoopRecorder) IncScopeResult(ResultLabel)                 {}
func (NoopRecorder) ObserveJobDuration(string, time.Duration)   {}
func (NoopRecorder) IncJobResult(string, ResultLabel)           {}
func (NoopRecorder) SetWorkers(string, int)                     {}
func (NoopRecorder) AddItems(int)                               {}
