package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"simulacra"
	"simulacra/artifact"
	"simulacra/config"
	"simulacra/internal/clock"
	"simulacra/modelspec"
)

var (
	flagResultsDir   string
	flagArtifactPath string
	flagArtifactDSN  string
	flagVerbose      bool
	flagPDB          bool
)

func init() {
	runCmd.Flags().StringVarP(&flagResultsDir, "output", "o", "results", "directory to write run results under")
	runCmd.Flags().StringVarP(&flagArtifactPath, "artifact", "i", "", "path to the SQLite artifact store backing this run")
	runCmd.Flags().StringVar(&flagArtifactDSN, "artifact-dsn", "", "PostgreSQL connection string for the artifact store, instead of --artifact")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	runCmd.Flags().BoolVar(&flagPDB, "pdb", false, "on a fatal error, print the full stack trace instead of a one-line summary")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run MODEL_SPEC",
	Short: "run a model specification to completion and write results",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

type runMetadata struct {
	InputDraw          int       `yaml:"input_draw"`
	RandomSeed         uint32    `yaml:"random_seed"`
	SimulationRunTime  time.Time `yaml:"simulation_run_time"`
	ArtifactPath       string    `yaml:"artifact_path"`
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if flagPDB {
				panic(r)
			}
			err = fmt.Errorf("run failed: %v", r)
		}
	}()

	specPath := args[0]
	spec, err := modelspec.Parse(specPath)
	if err != nil {
		return err
	}

	tree := config.NewTree()
	var setConfig func(key string, v interface{}) error
	setConfig = func(key string, v interface{}) error {
		if nested, ok := v.(map[string]interface{}); ok {
			for k, child := range nested {
				if err := setConfig(config.KeyPath(key, k), child); err != nil {
					return err
				}
			}
			return nil
		}
		return tree.Set(config.LayerModelOverride, key, v, specPath)
	}
	for k, v := range spec.Configuration {
		if err := setConfig(k, v); err != nil {
			return err
		}
	}
	tree.Freeze()
	snapshot := tree.Snapshot()

	ctx := context.Background()

	var artifactStore artifact.Store
	switch {
	case flagArtifactDSN != "":
		store, err := artifact.OpenPostgresStore(ctx, flagArtifactDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		artifactStore = store
	case flagArtifactPath != "":
		store, err := artifact.OpenSQLiteStore(flagArtifactPath)
		if err != nil {
			return err
		}
		defer store.Close()
		artifactStore = store
	}

	seed := intConfig(snapshot, "randomness.random_seed", 0)
	useCRN := boolConfig(snapshot, "randomness.use_crn", true)
	keyColumns := stringSliceConfig(snapshot, "randomness.key_columns")
	populationSize := intConfig(snapshot, "population.population_size", 1000)
	stepSize := intConfig(snapshot, "time.step_size", 1)
	numSteps := intConfig(snapshot, "time.num_steps", 10)

	logLevel := slog.LevelWarn
	if flagVerbose {
		logLevel = slog.LevelInfo
	}

	sc := simulacra.New(simulacra.Config{
		Logger:         slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})),
		Clock:          clock.NewStepClock(stepSize, numSteps*stepSize),
		GlobalSeed:     uint32(seed),
		UseCRN:         useCRN,
		PopulationSize: populationSize,
		KeyColumns:     keyColumns,
		Artifact:       artifactStore,
	})

	for _, decl := range spec.Components {
		comp, err := lookupComponent(decl.ModulePath, decl.Args)
		if err != nil {
			return err
		}
		if err := sc.AddComponents(comp); err != nil {
			return err
		}
	}

	if err := sc.Setup(ctx); err != nil {
		return err
	}
	if _, err := sc.CreateInitialPopulation(nil); err != nil {
		return err
	}
	runErr := sc.Run(ctx)

	runDir := filepath.Join(flagResultsDir, time.Now().UTC().Format("20060102T150405Z")+"-"+uuid.NewString()[:8])
	if mkErr := os.MkdirAll(runDir, 0o755); mkErr != nil {
		return mkErr
	}
	if err := writeMetadata(runDir, seed, flagArtifactPath); err != nil {
		return err
	}
	if err := writeModelSpecification(runDir, spec); err != nil {
		return err
	}
	if err := writeObservations(runDir, sc); err != nil {
		return err
	}

	return runErr
}

func writeMetadata(runDir string, seed int, artifactPath string) error {
	meta := runMetadata{RandomSeed: uint32(seed), SimulationRunTime: time.Now().UTC(), ArtifactPath: artifactPath}
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "metadata.yaml"), raw, 0o644)
}

func writeModelSpecification(runDir string, spec *modelspec.Spec) error {
	doc := map[string]interface{}{
		"plugins":       spec.Plugins,
		"configuration": spec.Configuration,
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "model_specification.yaml"), raw, 0o644)
}

func writeObservations(runDir string, sc *simulacra.SimulationContext) error {
	for _, name := range sc.Results().ObservationNames() {
		adding, scalar, concatenated, err := sc.Results().Accumulated(name)
		if err != nil {
			return err
		}
		var doc interface{}
		switch {
		case adding != nil:
			doc = adding
		case concatenated != nil:
			doc = concatenated
		default:
			doc = scalar
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(runDir, name+".yaml"), raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func intConfig(m map[string]interface{}, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func boolConfig(m map[string]interface{}, key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringSliceConfig(m map[string]interface{}, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
