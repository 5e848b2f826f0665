// Package component implements the lifecycle coordinator: components are
// any value implementing Component, with Name and Setup required and every
// other lifecycle hook opt-in via a capability interface, per spec §4.1 and
// §9's "duck-typed components -> capability traits" design note.
package component

import (
	"sort"

	"simulacra/internal/event"
	"simulacra/internal/population"
	"simulacra/internal/resource"
	"simulacra/simerr"
)

// Component is the minimum contract every plugin satisfies.
type Component interface {
	Name() string
	Setup(b *Builder)
}

// Configurable components contribute default configuration values, handed
// to the Manager's mergeDefaults callback when the component is added.
type Configurable interface {
	ConfigurationDefaults() map[string]interface{}
}

// SubComponentProvider components reveal nested components, either up front
// or during their own Setup call; both are flattened into the registration
// order.
type SubComponentProvider interface {
	SubComponents() []Component
}

// Prioritized lets a hook declare a non-default bucket (0-9); absent this,
// hooks run at the default priority 5.
type Prioritized interface {
	Priority() int
}

const defaultPriority = 5

// The following hook interfaces are each independently optional. A
// component may implement any subset.
type PostSetupHandler interface{ OnPostSetup(event.Event) }
type TimeStepPrepareHandler interface{ OnTimeStepPrepare(event.Event) }
type TimeStepHandler interface{ OnTimeStep(event.Event) }
type TimeStepCleanupHandler interface{ OnTimeStepCleanup(event.Event) }
type CollectMetricsHandler interface{ OnCollectMetrics(event.Event) }
type SimulationEndHandler interface{ OnSimulationEnd(event.Event) }

// SimulantInitializer is implemented by components that populate columns
// when new simulants are created.
type SimulantInitializer interface {
	// InitializesSimulants returns the columns this initializer creates,
	// the resources it requires first, and the function the population
	// manager runs over the newly-created index. Entries in requires (and
	// produces) are plain column names by default; a "value:" or "stream:"
	// prefix requires a named pipeline or randomness stream instead, per
	// resource.ParseRef.
	InitializesSimulants() (produces []string, requires []string, fn population.InitializerFunc)
}

// Manager holds the ordered component list and wires each component's
// optional hooks into the event and resource managers during setup.
type Manager struct {
	events    *event.Manager
	resources *resource.Manager
	mergeDefaults func(component string, defaults map[string]interface{})

	components   []Component
	names        map[string]bool
	initializers map[string]population.InitializerFunc
	setupDone    bool
}

// NewManager constructs a ComponentManager. mergeDefaults is invoked once
// per configurable component at AddComponents time, with the component's
// name and its configuration_defaults.
func NewManager(events *event.Manager, resources *resource.Manager, mergeDefaults func(string, map[string]interface{})) *Manager {
	return &Manager{events: events, resources: resources, mergeDefaults: mergeDefaults, names: make(map[string]bool), initializers: make(map[string]population.InitializerFunc)}
}

// AddComponents flattens nested sub-components, assigns and validates
// unique names, and merges configuration defaults. Safe to call again
// during Setup to register components a component reveals dynamically.
func (m *Manager) AddComponents(components ...Component) error {
	if m.setupDone {
		return simerr.NewConfigurationError("cannot add components after setup has completed", "")
	}
	var flatten func([]Component) error
	flatten = func(cs []Component) error {
		for _, c := range cs {
			name := c.Name()
			if name == "" {
				return simerr.NewConfigurationError("component has no name", "")
			}
			if m.names[name] {
				return simerr.NewConfigurationError("duplicate component name", name)
			}
			m.names[name] = true
			m.components = append(m.components, c)
			if cfg, ok := c.(Configurable); ok && m.mergeDefaults != nil {
				m.mergeDefaults(name, cfg.ConfigurationDefaults())
			}
			if provider, ok := c.(SubComponentProvider); ok {
				if err := flatten(provider.SubComponents()); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return flatten(components)
}

// SetupComponents walks the component list in registration order, invoking
// each component's Setup hook and wiring its optional lifecycle handlers
// and simulant initializer into the event and resource managers. Because
// a component's Setup may call AddComponents, the walk keeps advancing
// until no components remain unprocessed.
func (m *Manager) SetupComponents(b *Builder) error {
	processed := 0
	for processed < len(m.components) {
		c := m.components[processed]
		processed++
		c.Setup(b)
		if err := m.wireHooks(c); err != nil {
			return err
		}
	}
	m.setupDone = true
	return nil
}

func (m *Manager) wireHooks(c Component) error {
	priority := defaultPriority
	if p, ok := c.(Prioritized); ok {
		priority = p.Priority()
	}
	register := func(channel string, handler event.Handler) error {
		return m.events.RegisterListener(channel, priority, handler)
	}
	if h, ok := c.(PostSetupHandler); ok {
		if err := register("post_setup", func(e event.Event) { h.OnPostSetup(e) }); err != nil {
			return err
		}
	}
	if h, ok := c.(TimeStepPrepareHandler); ok {
		if err := register("time_step__prepare", func(e event.Event) { h.OnTimeStepPrepare(e) }); err != nil {
			return err
		}
	}
	if h, ok := c.(TimeStepHandler); ok {
		if err := register("time_step", func(e event.Event) { h.OnTimeStep(e) }); err != nil {
			return err
		}
	}
	if h, ok := c.(TimeStepCleanupHandler); ok {
		if err := register("time_step__cleanup", func(e event.Event) { h.OnTimeStepCleanup(e) }); err != nil {
			return err
		}
	}
	if h, ok := c.(CollectMetricsHandler); ok {
		if err := register("collect_metrics", func(e event.Event) { h.OnCollectMetrics(e) }); err != nil {
			return err
		}
	}
	if h, ok := c.(SimulationEndHandler); ok {
		if err := register("simulation_end", func(e event.Event) { h.OnSimulationEnd(e) }); err != nil {
			return err
		}
	}
	if init, ok := c.(SimulantInitializer); ok {
		produces, requires, fn := init.InitializesSimulants()
		producesIDs := make([]resource.ID, len(produces))
		for i, p := range produces {
			producesIDs[i] = resource.ParseRef(p)
		}
		requiresIDs := make([]resource.ID, len(requires))
		for i, r := range requires {
			requiresIDs[i] = resource.ParseRef(r)
		}
		if err := m.resources.Register(c.Name(), c.Name(), producesIDs, requiresIDs, func() {}); err != nil {
			return err
		}
		m.initializers[c.Name()] = fn
	}
	return nil
}

// OrderedInitializers asks the resource manager for the topological order
// of registered initializers and returns the corresponding population
// initializer functions in that order.
func (m *Manager) OrderedInitializers() ([]population.InitializerFunc, error) {
	ordered, err := m.resources.GetOrderedInitializers()
	if err != nil {
		return nil, err
	}
	fns := make([]population.InitializerFunc, 0, len(ordered))
	for _, init := range ordered {
		if fn, ok := m.initializers[init.Name]; ok && fn != nil {
			fns = append(fns, fn)
		}
	}
	return fns, nil
}

// Names returns every registered component's name, in registration order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.components))
	for i, c := range m.components {
		names[i] = c.Name()
	}
	return names
}

// SortedNames returns registered names sorted lexically, for diagnostics.
func (m *Manager) SortedNames() []string {
	names := m.Names()
	sort.Strings(names)
	return names
}
