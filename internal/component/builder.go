package component

import (
	"simulacra/artifact"
	"simulacra/internal/clock"
	"simulacra/internal/event"
	"simulacra/internal/population"
	"simulacra/internal/random"
	"simulacra/internal/results"
	"simulacra/internal/values"
)

// Builder is the value type handed to every component's Setup hook,
// exposing each manager's public surface without exposing the managers
// themselves, per spec §9's "global mutable state -> owned context" note.
type Builder struct {
	Clock       clock.Clock
	Population  *population.Manager
	Values      *values.Manager
	Events      *event.Manager
	Randomness  *random.Manager
	Results     *results.Manager
	Components  *Manager

	// Artifact is the run's opened input-artifact store, or nil when the
	// run was started without --artifact/--artifact-dsn. Components check
	// for nil before using it, since artifact input is optional per spec §6.
	Artifact artifact.Store

	configDefaults func(component string, defaults map[string]interface{})
}

// NewBuilder assembles a Builder from the already-constructed managers.
func NewBuilder(c clock.Clock, pop *population.Manager, vals *values.Manager, events *event.Manager, rand *random.Manager, res *results.Manager, comps *Manager, art artifact.Store) *Builder {
	return &Builder{Clock: c, Population: pop, Values: vals, Events: events, Randomness: rand, Results: res, Components: comps, Artifact: art}
}

// AddComponents lets a component reveal sub-components dynamically during
// its own Setup call, per spec §4.1(c).
func (b *Builder) AddComponents(components ...Component) error {
	return b.Components.AddComponents(components...)
}
