package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProviderOptions configures the Prometheus-backed Provider.
type PrometheusProviderOptions struct {
	Registry *prometheus.Registry
}

// NewPrometheusProvider returns a Provider backed by client_golang. If no
// registry is supplied a fresh one is created (never the global default
// registry, so repeated engine construction in tests never panics on
// duplicate registration).
func NewPrometheusProvider(opts PrometheusProviderOptions) Provider {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &promProvider{registry: reg}
}

type promProvider struct {
	registry *prometheus.Registry
	mu       sync.Mutex
}

func fqName(c CommonOpts) string {
	return prometheus.BuildFQName(c.Namespace, c.Subsystem, c.Name)
}

func (p *promProvider) NewCounter(opts CounterOpts) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: fqName(opts.CommonOpts), Help: opts.Help,
	}, opts.Labels)
	_ = p.registry.Register(vec)
	return &promCounter{vec: vec, labelCount: len(opts.Labels)}
}

func (p *promProvider) NewGauge(opts GaugeOpts) Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: fqName(opts.CommonOpts), Help: opts.Help,
	}, opts.Labels)
	_ = p.registry.Register(vec)
	return &promGauge{vec: vec, labelCount: len(opts.Labels)}
}

func (p *promProvider) NewHistogram(opts HistogramOpts) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: fqName(opts.CommonOpts), Help: opts.Help, Buckets: opts.Buckets,
	}, opts.Labels)
	_ = p.registry.Register(vec)
	return &promHistogram{vec: vec, labelCount: len(opts.Labels)}
}

func (p *promProvider) Health(ctx context.Context) error { return nil }

type promCounter struct {
	vec        *prometheus.CounterVec
	labelCount int
}

func (c *promCounter) Inc(delta float64, labels ...string) {
	c.vec.WithLabelValues(pad(labels, c.labelCount)...).Add(delta)
}

type promGauge struct {
	vec        *prometheus.GaugeVec
	labelCount int
}

func (g *promGauge) Set(value float64, labels ...string) {
	g.vec.WithLabelValues(pad(labels, g.labelCount)...).Set(value)
}
func (g *promGauge) Add(delta float64, labels ...string) {
	g.vec.WithLabelValues(pad(labels, g.labelCount)...).Add(delta)
}

type promHistogram struct {
	vec        *prometheus.HistogramVec
	labelCount int
}

func (h *promHistogram) Observe(value float64, labels ...string) {
	h.vec.WithLabelValues(pad(labels, h.labelCount)...).Observe(value)
}

// pad ensures exactly n label values are passed to WithLabelValues even if
// the caller supplied fewer (e.g. a zero-label metric called with none).
func pad(labels []string, n int) []string {
	if len(labels) == n {
		return labels
	}
	out := make([]string, n)
	copy(out, labels)
	return out
}
