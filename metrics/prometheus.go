package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spacetravelling"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	reg              *prom.Registry
	fetchDuration    *prom.HistogramVec
	fetchRetries     *prom.CounterVec
	renderDuration   *prom.HistogramVec
	pageResults      *prom.CounterVec
	validationErrors *prom.CounterVec
	buildDuration    *prom.HistogramVec
	buildOutcomes    *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusRecorder{
		reg: reg,
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "content_fetch_duration_seconds",
			Help:      "Duration of content API requests",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "result"}),
		fetchRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "content_fetch_retries_total",
			Help:      "Retries of transient content API failures",
		}, []string{"operation"}),
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_render_duration_seconds",
			Help:      "Time spent generating a page, fetch included",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_results_total",
			Help:      "Served pages by cache outcome",
		}, []string{"kind", "result"}),
		validationErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Documents rejected by the view-model builder",
		}, []string{"field"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full site generation runs",
			Buckets:   prom.DefBuckets,
		}, []string{"trigger"}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Generation runs by outcome",
		}, []string{"trigger", "outcome"}),
	}
	reg.MustRegister(p.fetchDuration, p.fetchRetries, p.renderDuration, p.pageResults,
		p.validationErrors, p.buildDuration, p.buildOutcomes)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveFetch(operation string, d time.Duration, success bool) {
	p.fetchDuration.WithLabelValues(operation, outcome(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFetchRetry(operation string) {
	p.fetchRetries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) ObserveRender(kind string, d time.Duration) {
	p.renderDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(kind string, result ResultLabel) {
	p.pageResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) IncValidationError(field string) {
	p.validationErrors.WithLabelValues(field).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(trigger string, d time.Duration) {
	p.buildDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(trigger string, success bool) {
	p.buildOutcomes.WithLabelValues(trigger, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
