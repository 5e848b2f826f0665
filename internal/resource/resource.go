// Package resource implements the resource dependency graph: it sorts
// simulant initializers (and exposes dependency edges for pipelines and
// streams) so every initializer runs after everything it depends on, per
// spec §4.2.
package resource

import (
	"fmt"
	"sort"
	"strings"

	"simulacra/simerr"
)

// Kind identifies the category of a resource in the dependency graph.
type Kind string

const (
	KindColumn Kind = "column"
	KindValue  Kind = "value"
	KindStream Kind = "stream"
)

// ID names one resource in the graph.
type ID struct {
	Kind Kind
	Name string
}

func (r ID) String() string { return string(r.Kind) + "." + r.Name }

// ParseRef parses a resource reference as a component declares it in
// SimulantInitializer's produces/requires lists: an optional "kind:" prefix
// ("column", "value", or "stream") selects the Kind, per spec §4.2's three
// resource kinds; a bare name with no recognized prefix is a column, since
// that is the overwhelmingly common case.
func ParseRef(ref string) ID {
	if i := strings.IndexByte(ref, ':'); i != -1 {
		switch Kind(ref[:i]) {
		case KindColumn, KindValue, KindStream:
			return ID{Kind: Kind(ref[:i]), Name: ref[i+1:]}
		}
	}
	return ID{Kind: KindColumn, Name: ref}
}

// Initializer is a registered producer of one or more columns, with
// declared dependencies on other resources.
type Initializer struct {
	Name      string
	Produces  []ID
	Requires  []ID
	run       func()
	component string
}

// Manager owns the resource DAG and computes the deterministic topological
// order of initializers.
type Manager struct {
	initializers []*Initializer
	producerOf   map[ID]*Initializer
}

// NewManager constructs an empty resource manager.
func NewManager() *Manager {
	return &Manager{producerOf: make(map[ID]*Initializer)}
}

// Register adds a new initializer. Component is recorded for diagnostics
// only; each initializer has exactly one owning component per spec §3.
func (m *Manager) Register(name, component string, produces, requires []ID, run func()) error {
	init := &Initializer{Name: name, Produces: produces, Requires: requires, run: run, component: component}
	for _, p := range produces {
		if existing, ok := m.producerOf[p]; ok {
			return simerr.NewConfigurationError("duplicate producer for resource", fmt.Sprintf("%s produced by both %q and %q", p, existing.Name, name))
		}
		m.producerOf[p] = init
	}
	m.initializers = append(m.initializers, init)
	return nil
}

// GetOrderedInitializers performs Kahn's algorithm over the resource DAG,
// tie-broken by resource name so ordering is deterministic across runs.
// Returns a ConfigurationError naming a missing dependency, or, for a
// cycle, listing every initializer left unsorted: the cycle's members
// together with any initializer that depends on them.
func (m *Manager) GetOrderedInitializers() ([]*Initializer, error) {
	// Build adjacency: edge from producer-of(requirement) -> this initializer.
	indegree := make(map[*Initializer]int, len(m.initializers))
	dependents := make(map[*Initializer][]*Initializer)

	for _, init := range m.initializers {
		indegree[init] = 0
	}
	for _, init := range m.initializers {
		seen := make(map[*Initializer]bool)
		for _, req := range init.Requires {
			producer, ok := m.producerOf[req]
			if !ok {
				return nil, simerr.NewConfigurationError("missing resource producer", fmt.Sprintf("%s required by %q has no producer", req, init.Name))
			}
			if producer == init || seen[producer] {
				continue
			}
			seen[producer] = true
			dependents[producer] = append(dependents[producer], init)
			indegree[init]++
		}
	}

	// Ready set, ordered by name for deterministic tie-breaking.
	var ready []*Initializer
	for init, deg := range indegree {
		if deg == 0 {
			ready = append(ready, init)
		}
	}
	sortByName(ready)

	order := make([]*Initializer, 0, len(m.initializers))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		var newlyReady []*Initializer
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sortByName(newlyReady)
		ready = mergeSorted(ready, newlyReady)
	}

	if len(order) != len(m.initializers) {
		cycle := findCycleMembers(m.initializers, indegree)
		return nil, simerr.NewConfigurationError("cyclic resource dependency", cycle)
	}
	return order, nil
}

func sortByName(xs []*Initializer) {
	sort.Slice(xs, func(i, j int) bool { return xs[i].Name < xs[j].Name })
}

// mergeSorted merges two already-sorted-by-name slices, keeping the result
// sorted; used so ties among newly-ready nodes are broken consistently with
// the rest of the ready queue.
func mergeSorted(a, b []*Initializer) []*Initializer {
	if len(b) == 0 {
		return a
	}
	out := make([]*Initializer, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Name <= b[j].Name {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func findCycleMembers(initializers []*Initializer, indegree map[*Initializer]int) []string {
	var names []string
	for _, init := range initializers {
		if indegree[init] > 0 {
			names = append(names, init.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Run executes the initializer's registered body.
func (init *Initializer) Run() {
	if init.run != nil {
		init.run()
	}
}
