// Package results implements stratifications and observations: the cheap,
// configurable measurement layer described in spec §4.8.
package results

import (
	"sort"
	"strings"

	"simulacra/internal/query"
	"simulacra/simerr"
)

// Mapper assigns one category (from the stratification's closed set) to
// each row of a reported frame. Rows that do not belong to any category may
// return ok=false; they are excluded from every stratum.
type Mapper func(row int) (category string, ok bool)

// Stratification is a named categorical partition of the population.
type Stratification struct {
	Name               string
	Categories         []string
	ExcludedCategories map[string]bool
	Mapper             Mapper
	Requires           []string
}

func (s *Stratification) activeCategories() []string {
	out := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		if !s.ExcludedCategories[c] {
			out = append(out, c)
		}
	}
	return out
}

// RegisterBinnedStratification builds a Stratification whose mapper buckets
// a numeric source into labeled bins via cut-style half-open intervals
// [edges[i], edges[i+1]).
func RegisterBinnedStratification(name string, binEdges []float64, labels []string, source func(row int) (float64, bool)) (*Stratification, error) {
	if len(labels) != len(binEdges)-1 {
		return nil, simerr.NewConfigurationError("binned stratification needs len(labels) == len(bin_edges)-1", name)
	}
	mapper := func(row int) (string, bool) {
		v, ok := source(row)
		if !ok {
			return "", false
		}
		for i := 0; i < len(binEdges)-1; i++ {
			if v >= binEdges[i] && v < binEdges[i+1] {
				return labels[i], true
			}
		}
		return "", false
	}
	return &Stratification{Name: name, Categories: append([]string(nil), labels...), Mapper: mapper}, nil
}

// UpdaterKind selects how an observation's accumulator behaves across ticks.
type UpdaterKind int

const (
	Adding UpdaterKind = iota
	Concatenating
	Unstratified
)

// Aggregator reduces the rows belonging to one stratum (given as row
// indices into the prepared frame) to a single value.
type Aggregator func(rows []int) interface{}

// ReportedRow is one row of the frame an observation's aggregator and
// pop_filter see: the simulant's columns, pipeline values, and the
// convenience fields current_time/event_time/event_step_size/user_data.
type ReportedRow func(column string) (interface{}, bool)

// PreparedFrame is what the results manager hands to one observation at
// trigger time: the reporting index plus a row accessor.
type PreparedFrame struct {
	Index       []int
	ColumnNames []string
	Row         func(i int) ReportedRow
}

// Observation is a registered measure.
type Observation struct {
	Name                    string
	PopFilter               string
	Updater                 UpdaterKind
	AdditionalStratifications []string
	ExcludedStratifications   []string
	Aggregator              Aggregator
	When                    string // event phase name to trigger on, e.g. "collect_metrics"

	resolvedStrats []*Stratification
	accumulator    map[string]interface{} // stratum key ("A|B" or "all") -> value
	concatenated   []map[string]interface{}
	scalar         interface{}
}

// Manager owns all registered stratifications and observations.
type Manager struct {
	stratifications map[string]*Stratification
	observations    map[string]*Observation
	defaultExcluded map[string]bool
}

// NewManager constructs an empty ResultsManager.
func NewManager() *Manager {
	return &Manager{
		stratifications: make(map[string]*Stratification),
		observations:    make(map[string]*Observation),
		defaultExcluded: make(map[string]bool),
	}
}

func (m *Manager) RegisterStratification(s *Stratification) error {
	if _, exists := m.stratifications[s.Name]; exists {
		return simerr.NewConfigurationError("stratification already registered", s.Name)
	}
	m.stratifications[s.Name] = s
	return nil
}

func (m *Manager) registerObservation(o *Observation) error {
	if _, exists := m.observations[o.Name]; exists {
		return simerr.NewConfigurationError("observation already registered", o.Name)
	}
	m.observations[o.Name] = o
	return nil
}

func (m *Manager) RegisterAddingObservation(name, popFilter string, aggregator Aggregator, additional, excluded []string, when string) error {
	return m.registerObservation(&Observation{
		Name: name, PopFilter: popFilter, Updater: Adding, Aggregator: aggregator,
		AdditionalStratifications: additional, ExcludedStratifications: excluded, When: when,
	})
}

func (m *Manager) RegisterConcatenatingObservation(name, popFilter string, additional, excluded []string, when string) error {
	return m.registerObservation(&Observation{
		Name: name, PopFilter: popFilter, Updater: Concatenating,
		AdditionalStratifications: additional, ExcludedStratifications: excluded, When: when,
	})
}

func (m *Manager) RegisterUnstratifiedObservation(name, popFilter string, aggregator Aggregator, when string) error {
	return m.registerObservation(&Observation{Name: name, PopFilter: popFilter, Updater: Unstratified, Aggregator: aggregator, When: when})
}

// PostSetup resolves every observation's requested stratifications and
// seeds each adding-observation's zero-filled Cartesian-product accumulator.
// All unresolvable-stratification failures are collected and reported
// together in a single error.
func (m *Manager) PostSetup() error {
	var problems []string
	for _, obs := range m.observations {
		names := append([]string(nil), obs.AdditionalStratifications...)
		excluded := make(map[string]bool, len(obs.ExcludedStratifications))
		for _, e := range obs.ExcludedStratifications {
			excluded[e] = true
		}
		var resolved []*Stratification
		for _, n := range names {
			if excluded[n] {
				continue
			}
			s, ok := m.stratifications[n]
			if !ok {
				problems = append(problems, n)
				continue
			}
			resolved = append(resolved, s)
		}
		obs.resolvedStrats = resolved
		if obs.Updater == Adding {
			obs.accumulator = zeroFillCartesian(resolved)
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return simerr.NewConfigurationError("observation(s) requested unregistered stratifications", strings.Join(problems, ", "))
	}
	return nil
}

func zeroFillCartesian(strats []*Stratification) map[string]interface{} {
	if len(strats) == 0 {
		return map[string]interface{}{"all": nil}
	}
	keys := []string{""}
	for _, s := range strats {
		var next []string
		for _, prefix := range keys {
			for _, cat := range s.activeCategories() {
				if prefix == "" {
					next = append(next, cat)
				} else {
					next = append(next, prefix+"|"+cat)
				}
			}
		}
		keys = next
	}
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		out[k] = nil
	}
	return out
}

// Observe is invoked once per matching tick subphase: the prepared frame is
// filtered by pop_filter, grouped by the observation's resolved
// stratifications (or the "all" sentinel group if none apply), aggregated,
// and folded into the observation's running accumulator.
func (m *Manager) Observe(name string, phase string, frame PreparedFrame) error {
	obs, ok := m.observations[name]
	if !ok {
		return simerr.NewConfigurationError("no such observation", name)
	}
	if obs.When != "" && obs.When != phase {
		return nil
	}

	expr := query.Parse(obs.PopFilter)
	var rows []int
	for _, i := range frame.Index {
		if expr.Eval(query.Row(frame.Row(i))) {
			rows = append(rows, i)
		}
	}

	if obs.Updater == Unstratified {
		obs.scalar = obs.Aggregator(rows)
		return nil
	}

	groups := groupByStrata(rows, obs.resolvedStrats)

	switch obs.Updater {
	case Concatenating:
		for _, i := range rows {
			r := make(map[string]interface{}, len(frame.ColumnNames))
			rowFn := frame.Row(i)
			for _, col := range frame.ColumnNames {
				if v, ok := rowFn(col); ok {
					r[col] = v
				}
			}
			obs.concatenated = append(obs.concatenated, r)
		}
	case Adding:
		for key, groupRows := range groups {
			obs.accumulator[key] = addInto(obs.accumulator[key], obs.Aggregator(groupRows))
		}
	}
	return nil
}

// addInto folds a newly-aggregated value into an adding observation's
// running per-stratum total: each tick's contribution is summed into the
// accumulator rather than replacing it, matching an adding observation's
// defining behavior (it reports a running total over the whole simulation,
// not a snapshot of the most recent tick).
func addInto(prior, next interface{}) interface{} {
	switch n := next.(type) {
	case float64:
		p, _ := prior.(float64)
		return p + n
	case int64:
		p, _ := prior.(int64)
		return p + n
	case int:
		p, _ := prior.(int)
		return p + n
	default:
		return next
	}
}

func groupByStrata(rows []int, strats []*Stratification) map[string][]int {
	groups := make(map[string][]int)
	if len(strats) == 0 {
		groups["all"] = rows
		return groups
	}
	for _, row := range rows {
		var parts []string
		excluded := false
		for _, s := range strats {
			cat, ok := s.Mapper(row)
			if !ok || s.ExcludedCategories[cat] {
				excluded = true
				break
			}
			parts = append(parts, cat)
		}
		if excluded {
			continue
		}
		key := strings.Join(parts, "|")
		groups[key] = append(groups[key], row)
	}
	return groups
}

// Accumulated returns an adding-observation's current running accumulator
// (stratum key -> aggregated value), an unstratified observation's scalar,
// or a concatenating observation's accumulated rows.
func (m *Manager) Accumulated(name string) (adding map[string]interface{}, scalar interface{}, concatenated []map[string]interface{}, err error) {
	obs, ok := m.observations[name]
	if !ok {
		return nil, nil, nil, simerr.NewConfigurationError("no such observation", name)
	}
	return obs.accumulator, obs.scalar, obs.concatenated, nil
}

// ObservationNames returns every registered observation's name, sorted.
func (m *Manager) ObservationNames() []string {
	names := make([]string, 0, len(m.observations))
	for n := range m.observations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
