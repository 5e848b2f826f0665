package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelProviderOptions configures the OpenTelemetry-backed Provider.
type OTelProviderOptions struct {
	ServiceName string
}

// NewOTelProvider returns a Provider backed by an OTEL MeterProvider. Gauges
// are approximated with a Float64UpDownCounter since OTEL has no native
// "Set" gauge instrument in the stable metric API; Set() is implemented as a
// delta against the last observed value per label set.
func NewOTelProvider(opts OTelProviderOptions) Provider {
	mp := sdkmetric.NewMeterProvider()
	name := opts.ServiceName
	if name == "" {
		name = "simulacra"
	}
	return &otelProvider{meter: mp.Meter(name)}
}

type otelProvider struct {
	meter metric.Meter
}

func buildName(c CommonOpts) string {
	switch {
	case c.Namespace != "" && c.Subsystem != "":
		return c.Namespace + "." + c.Subsystem + "." + c.Name
	case c.Namespace != "":
		return c.Namespace + "." + c.Name
	default:
		return c.Name
	}
}

func attrsFor(keys []string, labels []string) []attribute.KeyValue {
	n := len(keys)
	if len(labels) < n {
		n = len(labels)
	}
	out := make([]attribute.KeyValue, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, attribute.String(keys[i], labels[i]))
	}
	return out
}

func (p *otelProvider) NewCounter(opts CounterOpts) Counter {
	inst, err := p.meter.Float64Counter(buildName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopMetric{}
	}
	return &otelCounter{inst: inst, keys: opts.Labels}
}

func (p *otelProvider) NewGauge(opts GaugeOpts) Gauge {
	inst, err := p.meter.Float64UpDownCounter(buildName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopMetric{}
	}
	return &otelGauge{inst: inst, keys: opts.Labels, last: map[string]float64{}}
}

func (p *otelProvider) NewHistogram(opts HistogramOpts) Histogram {
	hopts := []metric.Float64HistogramOption{metric.WithDescription(opts.Help)}
	if len(opts.Buckets) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Buckets...))
	}
	inst, err := p.meter.Float64Histogram(buildName(opts.CommonOpts), hopts...)
	if err != nil {
		return noopMetric{}
	}
	return &otelHistogram{inst: inst, keys: opts.Labels}
}

func (p *otelProvider) Health(ctx context.Context) error { return nil }

type otelCounter struct {
	inst metric.Float64Counter
	keys []string
}

func (c *otelCounter) Inc(delta float64, labels ...string) {
	c.inst.Add(context.Background(), delta, metric.WithAttributes(attrsFor(c.keys, labels)...))
}

type otelGauge struct {
	inst metric.Float64UpDownCounter
	keys []string
	last map[string]float64
}

func (g *otelGauge) Set(value float64, labels ...string) {
	key := joinLabels(labels)
	delta := value - g.last[key]
	g.last[key] = value
	g.inst.Add(context.Background(), delta, metric.WithAttributes(attrsFor(g.keys, labels)...))
}

func (g *otelGauge) Add(delta float64, labels ...string) {
	key := joinLabels(labels)
	g.last[key] += delta
	g.inst.Add(context.Background(), delta, metric.WithAttributes(attrsFor(g.keys, labels)...))
}

func joinLabels(labels []string) string {
	out := ""
	for _, l := range labels {
		out += l + "\x00"
	}
	return out
}

type otelHistogram struct {
	inst metric.Float64Histogram
	keys []string
}

func (h *otelHistogram) Observe(value float64, labels ...string) {
	h.inst.Record(context.Background(), value, metric.WithAttributes(attrsFor(h.keys, labels)...))
}
