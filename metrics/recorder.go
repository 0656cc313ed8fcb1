// Package metrics defines the observability hooks used by the content client,
// the page generator and the HTTP app. Components default to NoopRecorder and
// get a PrometheusRecorder injected when metrics are enabled.
package metrics

import "time"

// ResultLabel enumerates page serving outcomes.
type ResultLabel string

const (
	ResultFresh    ResultLabel = "fresh"
	ResultStale    ResultLabel = "stale"
	ResultMiss     ResultLabel = "miss"
	ResultFallback ResultLabel = "fallback"
	ResultNotFound ResultLabel = "not_found"
	ResultError    ResultLabel = "error"
)

// Recorder receives metrics events. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveFetch(operation string, d time.Duration, success bool)
	IncFetchRetry(operation string)
	ObserveRender(kind string, d time.Duration)
	IncPageResult(kind string, result ResultLabel)
	IncValidationError(field string)
	ObserveBuildDuration(trigger string, d time.Duration)
	IncBuildOutcome(trigger string, success bool)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetch(string, time.Duration, bool)   {}
func (NoopRecorder) IncFetchRetry(string)                       {}
func (NoopRecorder) ObserveRender(string, time.Duration)        {}
func (NoopRecorder) IncPageResult(string, ResultLabel)          {}
func (NoopRecorder) IncValidationError(string)                  {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, bool)               {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
