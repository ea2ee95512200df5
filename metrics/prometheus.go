package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	scopeDuration *prom.HistogramVec
	scopeResults  *prom.CounterVec
	jobDuration   *prom.HistogramVec
	jobResults    *prom.CounterVec
	workers       *prom.GaugeVec
	items         prom.Counter
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		scopeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "logmap",
			Name:      "scope_duration_seconds",
			Help:      "Duration of completed scopes",
			Buckets:   prom.DefBuckets,
		}, []string{"label"}),
		scopeResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "logmap",
			Name:      "scope_results_total",
			Help:      "Scope exits by outcome",
		}, []string{"result"}),
		jobDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "logmap",
			Name:      "job_duration_seconds",
			Help:      "Duration of dispatched map jobs",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		jobResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "logmap",
			Name:      "job_results_total",
			Help:      "Dispatched map jobs by outcome",
		}, []string{"mode", "result"}),
		workers: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "logmap",
			Name:      "workers",
			Help:      "Worker count of the most recent parallel map",
		}, []string{"mode"}),
		items: prom.NewCounter(prom.CounterOpts{
			Namespace: "logmap",
			Name:      "iterated_items_total",
			Help:      "Items yielded by progress iterators",
		}),
	}
	reg.MustRegister(pr.scopeDuration, pr.scopeResults, pr.jobDuration, pr.jobResults, pr.workers, pr.items)
	return pr
}

func (p *PrometheusRecorder) ObserveScopeDuration(label string, d time.Duration) {
	p.scopeDuration.WithLabelValues(label).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncScopeResult(result ResultLabel) {
	p.scopeResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(mode string, d time.Duration) {
	p.jobDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncJobResult(mode string, result ResultLabel) {
	p.jobResults.WithLabelValues(mode, string(result)).Inc()
}

func (p *PrometheusRecorder) SetWorkers(mode string, n int) {
	p.workers.WithLabelValues(mode).Set(float64(n))
}

func (p *PrometheusRecorder) AddItems(n int) {
	p.items.Add(float64(n))
}

// Handler returns an HTTP handler serving the metrics gathered by reg.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
