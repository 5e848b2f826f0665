// Package values implements the pipeline system: a named source function
// plus an ordered chain of modifiers plus an optional post-processor, per
// spec §4.6.
package values

import (
	"math"

	"simulacra/internal/resource"
	"simulacra/simerr"
)

// Value is whatever a pipeline produces for an index: implementations keep
// this as `interface{}` since pipelines over an index may yield a series of
// float64, a frame, or any other per-simulant value.
type Value = interface{}

// Source computes the base value for a pipeline over an index.
type Source func(index []int) Value

// Modifier transforms a pipeline's prior value, given the same index.
type Modifier func(index []int, prior Value) Value

// PostProcessor does one final transform after all modifiers have run.
type PostProcessor func(v Value) Value

// Pipeline is one named, composable computation.
type Pipeline struct {
	Name      string
	source    Source
	modifiers []Modifier
	post      PostProcessor
}

// Call computes the pipeline's value for index: source, then each modifier
// in registration order, then the post-processor if any.
func (p *Pipeline) Call(index []int) (Value, error) {
	if p.source == nil {
		return nil, simerr.NewConfigurationError("pipeline has no registered source", p.Name)
	}
	v := p.source(index)
	for _, mod := range p.modifiers {
		v = mod(index, v)
	}
	if p.post != nil {
		v = p.post(v)
	}
	return v, nil
}

// Manager owns all named pipelines and the resource-graph edges their
// declared dependencies create.
type Manager struct {
	pipelines map[string]*Pipeline
	// requiredBy records each pipeline's declared required resources, by
	// name, for wiring into the resource graph by RegisterResources.
	requiredBy map[string][]string
}

// NewManager constructs an empty ValuesManager.
func NewManager() *Manager {
	return &Manager{pipelines: make(map[string]*Pipeline), requiredBy: make(map[string][]string)}
}

func (m *Manager) pipeline(name string) *Pipeline {
	p, ok := m.pipelines[name]
	if !ok {
		p = &Pipeline{Name: name}
		m.pipelines[name] = p
	}
	return p
}

// RegisterValueProducer creates a pipeline with exactly one source.
func (m *Manager) RegisterValueProducer(name string, source Source, requiredResources []string) error {
	p := m.pipeline(name)
	if p.source != nil {
		return simerr.NewConfigurationError("pipeline already has a registered source", name)
	}
	p.source = source
	m.requiredBy[name] = append(m.requiredBy[name], requiredResources...)
	return nil
}

// RegisterValueModifier appends a modifier; registration order is
// application order.
func (m *Manager) RegisterValueModifier(name string, modifier Modifier, requiredResources []string) {
	p := m.pipeline(name)
	p.modifiers = append(p.modifiers, modifier)
	m.requiredBy[name] = append(m.requiredBy[name], requiredResources...)
}

// RegisterRateProducer is a convenience wrapper: the source's annual-rate
// values are converted to per-step probabilities by
// 1 - exp(-rate * step_size_in_years) in the post-processor.
func (m *Manager) RegisterRateProducer(name string, source Source, stepSizeYears func() float64) error {
	if err := m.RegisterValueProducer(name, source, nil); err != nil {
		return err
	}
	p := m.pipeline(name)
	p.post = func(v Value) Value {
		rates, ok := v.([]float64)
		if !ok {
			return v
		}
		step := stepSizeYears()
		out := make([]float64, len(rates))
		for i, r := range rates {
			out[i] = 1 - math.Exp(-r*step)
		}
		return out
	}
	return nil
}

// Call invokes the named pipeline over index.
func (m *Manager) Call(name string, index []int) (Value, error) {
	p, ok := m.pipelines[name]
	if !ok {
		return nil, simerr.NewConfigurationError("no such pipeline", name)
	}
	return p.Call(index)
}

// RequiredResources returns the names every pipeline declared as
// dependencies, for the resource manager to wire as graph edges.
func (m *Manager) RequiredResources(name string) []string {
	return m.requiredBy[name]
}

// RegisterResources registers every pipeline as a KindValue producer in the
// resource graph, with requires edges built from each pipeline's declared
// required resources, per spec §4.6: "all declared required_resources
// (columns and streams) become edges in the resource graph." Call once,
// after all components have run Setup, so every pipeline a component might
// depend on by name (e.g. "value:body_mass_index") already exists.
func (m *Manager) RegisterResources(r *resource.Manager) error {
	for name := range m.pipelines {
		declared := m.RequiredResources(name)
		requires := make([]resource.ID, len(declared))
		for i, ref := range declared {
			requires[i] = resource.ParseRef(ref)
		}
		id := resource.ID{Kind: resource.KindValue, Name: name}
		if err := r.Register("value:"+name, "values", []resource.ID{id}, requires, func() {}); err != nil {
			return err
		}
	}
	return nil
}
