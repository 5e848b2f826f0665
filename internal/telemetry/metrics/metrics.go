// Package metrics provides a small provider abstraction over counters,
// gauges and histograms so the engine can target Prometheus, OpenTelemetry,
// or no backend at all without the rest of the core knowing the difference.
package metrics

import "context"

// Counter represents a monotonically increasing value.
type Counter interface {
	Inc(delta float64, labels ...string)
}

// Gauge represents a value that can go up or down.
type Gauge interface {
	Set(value float64, labels ...string)
	Add(delta float64, labels ...string)
}

// Histogram records observations into buckets and tracks count + sum.
type Histogram interface {
	Observe(value float64, labels ...string)
}

// Provider is the top-level metrics provider abstraction.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	NewHistogram(opts HistogramOpts) Histogram
	// Health returns an error if the provider is degraded (e.g. a failed
	// backend registration).
	Health(ctx context.Context) error
}

// CommonOpts is embedded into each metric option struct.
type CommonOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
}

type CounterOpts struct{ CommonOpts }
type GaugeOpts struct{ CommonOpts }
type HistogramOpts struct {
	CommonOpts
	Buckets []float64
}

// NewNoopProvider returns a Provider whose metrics discard everything.
// Used when telemetry is disabled so call sites never need a nil check.
func NewNoopProvider() Provider { return noopProvider{} }

type noopProvider struct{}

func (noopProvider) NewCounter(CounterOpts) Counter     { return noopMetric{} }
func (noopProvider) NewGauge(GaugeOpts) Gauge           { return noopMetric{} }
func (noopProvider) NewHistogram(HistogramOpts) Histogram { return noopMetric{} }
func (noopProvider) Health(context.Context) error       { return nil }

type noopMetric struct{}

func (noopMetric) Inc(float64, ...string)     {}
func (noopMetric) Set(float64, ...string)     {}
func (noopMetric) Add(float64, ...string)     {}
func (noopMetric) Observe(float64, ...string) {}
