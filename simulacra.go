// Package simulacra is a discrete-event, single-threaded, cooperative
// microsimulation engine: many autonomous components cooperate to advance a
// shared tabular state through time via mediated views, priority-ordered
// events, composable value pipelines, and CRN-aligned randomness streams.
package simulacra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"simulacra/artifact"
	"simulacra/internal/clock"
	"simulacra/internal/component"
	"simulacra/internal/event"
	"simulacra/internal/population"
	"simulacra/internal/random"
	"simulacra/internal/resource"
	"simulacra/internal/results"
	"simulacra/internal/telemetry/logging"
	"simulacra/internal/telemetry/metrics"
	"simulacra/internal/values"
	"simulacra/simerr"
)

// Config bundles everything needed to construct a SimulationContext.
type Config struct {
	Clock           clock.Clock
	GlobalSeed      uint32
	UseCRN          bool
	PopulationSize  int
	IndexMapSize    int
	KeyColumns      []string
	MetricsProvider metrics.Provider
	Logger          *slog.Logger

	// Artifact is the run's opened input-artifact store, threaded through to
	// every component's Builder. Nil when the run has no backing artifact.
	Artifact artifact.Store
}

// SimulationContext composes the seven managers and the builder that
// exposes them to components, and drives the control flow of spec §2:
// setup -> post_setup -> population_creation -> repeated ticks ->
// simulation_end -> report.
type SimulationContext struct {
	cfg Config

	clock       clock.Clock
	population  *population.Manager
	resources   *resource.Manager
	values      *values.Manager
	events      *event.Manager
	randomness  *random.Manager
	results     *results.Manager
	components  *component.Manager
	builder     *component.Builder

	logger  logging.Logger
	metrics metrics.Provider

	tickCount metrics.Counter
}

// New constructs a SimulationContext. Managers are wired in the dependency
// order Clock -> RandomnessManager -> PopulationManager -> ResourceManager
// -> ValuesManager -> EventManager -> ResultsManager -> ComponentManager.
func New(cfg Config) *SimulationContext {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewStepClock(1, 0)
	}
	if cfg.MetricsProvider == nil {
		cfg.MetricsProvider = metrics.NewNoopProvider()
	}

	sc := &SimulationContext{cfg: cfg, clock: cfg.Clock, metrics: cfg.MetricsProvider}
	sc.logger = logging.New(cfg.Logger)

	popMgr := population.NewManager()
	sc.population = popMgr

	sc.randomness = random.NewManager(
		random.Config{
			GlobalSeed:     cfg.GlobalSeed,
			UseCRN:         cfg.UseCRN,
			IndexMapSize:   cfg.IndexMapSize,
			PopulationSize: cfg.PopulationSize,
		},
		cfg.Clock.CurrentTime,
		sc.keyTuplesFor,
	)

	sc.resources = resource.NewManager()
	sc.values = values.NewManager()
	sc.events = event.NewManager(func() (float64, float64) { return cfg.Clock.CurrentTime(), cfg.Clock.StepSize() })
	sc.results = results.NewManager()

	// Components' configuration defaults are recorded here by component
	// name; they are not written into any configuration tree.
	configDefaults := make(map[string]map[string]interface{})
	sc.components = component.NewManager(sc.events, sc.resources, func(name string, defaults map[string]interface{}) {
		configDefaults[name] = defaults
	})
	sc.builder = component.NewBuilder(sc.clock, sc.population, sc.values, sc.events, sc.randomness, sc.results, sc.components, cfg.Artifact)

	sc.tickCount = sc.metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Name: "ticks_total", Help: "Number of time steps executed."}})
	return sc
}

// keyTuplesFor reads the configured key columns from the population table
// for the given rows, building the CRN key tuples the randomness subsystem
// hashes into the index map.
func (sc *SimulationContext) keyTuplesFor(index []int) ([]random.KeyTuple, error) {
	table := sc.population.Table()
	tuples := make([]random.KeyTuple, len(index))
	for i, row := range index {
		tuple := make(random.KeyTuple, 0, len(sc.cfg.KeyColumns))
		for _, col := range sc.cfg.KeyColumns {
			v := table.ColumnValue(col, row)
			switch val := v.(type) {
			case float64:
				tuple = append(tuple, random.FloatKey(val))
			case int64:
				tuple = append(tuple, random.IntKey(val))
			case time.Time:
				tuple = append(tuple, random.TimeKey(val.Unix()))
			default:
				return nil, simerr.NewRandomnessError("key column is not a supported CRN type", col)
			}
		}
		tuples[i] = tuple
	}
	return tuples, nil
}

// AddComponents registers components (and their recursively-flattened
// sub-components) prior to Setup.
func (sc *SimulationContext) AddComponents(components ...component.Component) error {
	return sc.components.AddComponents(components...)
}

// Builder exposes the manager surface handed to components during Setup,
// useful for tests that want to register ad hoc views or pipelines outside
// a Component.
func (sc *SimulationContext) Builder() *component.Builder { return sc.builder }

// Setup runs component setup, registers every pipeline and requested stream
// in the resource graph, resolves observations' stratifications, and fires
// post_setup. create_simulants for the initial population follows. After
// Setup the component manager rejects new components; the resource manager
// itself is not locked and still accepts Register calls.
func (sc *SimulationContext) Setup(ctx context.Context) error {
	if err := sc.components.SetupComponents(sc.builder); err != nil {
		return err
	}
	if err := sc.values.RegisterResources(sc.resources); err != nil {
		return err
	}
	if err := sc.randomness.RegisterResources(sc.resources); err != nil {
		return err
	}
	if err := sc.results.PostSetup(); err != nil {
		return err
	}
	sc.emit(ctx, "post_setup", nil, nil)
	return nil
}

// CreateInitialPopulation runs create_simulants for Config.PopulationSize
// simulants ahead of the first tick, using the resource manager's
// topological initializer order.
func (sc *SimulationContext) CreateInitialPopulation(userData map[string]interface{}) ([]int, error) {
	initializers, err := sc.components.OrderedInitializers()
	if err != nil {
		return nil, err
	}
	index := sc.population.CreateSimulants(sc.cfg.PopulationSize, userData, sc.clock.CurrentTime(), sc.clock.StepSize(), initializers)
	if err := sc.randomness.RegisterSimulants(index); err != nil {
		return nil, err
	}
	return index, nil
}

// Run executes ticks until the clock is done, then fires simulation_end and
// report. Errors abort the run immediately, matching spec §7's propagation
// policy: everything but the two locally-recoverable cases surfaces to the
// run loop.
func (sc *SimulationContext) Run(ctx context.Context) error {
	for !sc.clock.Done() {
		if err := sc.tick(ctx); err != nil {
			return simerr.NewFatalRuntimeError("time step failed", err)
		}
	}
	sc.emit(ctx, "simulation_end", nil, nil)
	sc.emit(ctx, "report", nil, nil)
	return nil
}

func (sc *SimulationContext) tick(ctx context.Context) error {
	index := sc.population.AllIndex()
	sc.emit(ctx, "time_step__prepare", index, nil)
	sc.emit(ctx, "time_step", index, nil)
	sc.emit(ctx, "time_step__cleanup", index, nil)
	sc.emit(ctx, "collect_metrics", index, nil)
	sc.clock.StepForward()
	sc.tickCount.Inc(1)
	return nil
}

func (sc *SimulationContext) emit(ctx context.Context, phase string, index []int, userData map[string]interface{}) {
	corrCtx := logging.WithCorrelation(ctx, logging.Correlation{Phase: phase, Time: fmt.Sprintf("%v", sc.clock.CurrentTime())})
	sc.logger.InfoCtx(corrCtx, "emitting phase", "phase", phase, "index_len", len(index))
	sc.events.GetEmitter(phase)(index, userData)
}

// Population exposes the population manager for read-only diagnostic use
// (e.g. result reporting) outside the component capability surface.
func (sc *SimulationContext) Population() *population.Manager { return sc.population }

// Results exposes the results manager so a CLI or test harness can read
// accumulated observations after Run returns.
func (sc *SimulationContext) Results() *results.Manager { return sc.results }
