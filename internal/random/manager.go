package random

import (
	"simulacra/internal/resource"
	"simulacra/simerr"
)

// Config controls the whole randomness subsystem for one run, per spec
// §4.7: a global seed, whether Common Random Numbers alignment is enabled,
// and the index-map pool size. The pool is sized to
// max(IndexMapSize, 10*PopulationSize), so an explicit IndexMapSize only
// ever grows the pool beyond the population-derived floor.
type Config struct {
	GlobalSeed     uint32
	UseCRN         bool
	IndexMapSize   int
	PopulationSize int
}

// Manager owns the shared IndexMap and hands out independently-seeded
// Streams.
type Manager struct {
	cfg      Config
	indexMap *IndexMap
	clockFn  func() float64
	keysFor  func(index []int) ([]KeyTuple, error)
	streams  map[string]*Stream
}

// NewManager constructs a RandomnessManager. clockFn returns the current
// simulation time (used in seed derivation); keysFor resolves a row index
// to CRN key tuples by reading the configured key columns from the
// population table.
func NewManager(cfg Config, clockFn func() float64, keysFor func(index []int) ([]KeyTuple, error)) *Manager {
	size := cfg.IndexMapSize
	if floor := 10 * cfg.PopulationSize; floor > size {
		size = floor
	}
	if size <= 0 {
		size = 1_000_000
	}
	return &Manager{
		cfg:      cfg,
		indexMap: NewIndexMap(size, cfg.UseCRN),
		clockFn:  clockFn,
		keysFor:  keysFor,
		streams:  make(map[string]*Stream),
	}
}

// RegisterSimulants adds newly-created simulants' key tuples to the index
// map, so their later draws align across counterfactual runs regardless of
// the order components request streams in.
func (m *Manager) RegisterSimulants(index []int) error {
	if !m.cfg.UseCRN || len(index) == 0 {
		return nil
	}
	keys, err := m.keysFor(index)
	if err != nil {
		return err
	}
	return m.indexMap.Register(keys)
}

// GetStream creates and registers the named stream. Each key may be
// registered once; requesting a key that is already registered is a
// RandomnessError. initializesCRNAttributes must be true for exactly the
// streams that populate the columns the index map keys on (e.g. entrance
// time); such a stream may not later be called with a non-empty
// additionalKey, since its draws are taken positionally rather than through
// the index map.
func (m *Manager) GetStream(key string, initializesCRNAttributes bool) (*Stream, error) {
	if s, ok := m.streams[key]; ok {
		if s.initializesCRN != initializesCRNAttributes {
			return nil, simerr.NewRandomnessError("stream already registered with a different CRN role", key)
		}
		return nil, simerr.NewRandomnessError("stream already registered", key)
	}
	s := &Stream{
		key:            key,
		initializesCRN: initializesCRNAttributes,
		globalSeed:     m.cfg.GlobalSeed,
		clockFn:        m.clockFn,
		indexMap:       m.indexMap,
		keysFor:        m.keysFor,
	}
	m.streams[key] = s
	return s, nil
}

// RegisterResources registers every stream requested so far as a KindStream
// producer in the resource graph, per spec §4.6, so a SimulantInitializer
// can require a stream by name (e.g. "stream:mortality") and have it ordered
// ahead of it. Call once, after all components have run Setup.
func (m *Manager) RegisterResources(r *resource.Manager) error {
	for key := range m.streams {
		id := resource.ID{Kind: resource.KindStream, Name: key}
		if err := r.Register("stream:"+key, "randomness", []resource.ID{id}, nil, func() {}); err != nil {
			return err
		}
	}
	return nil
}
