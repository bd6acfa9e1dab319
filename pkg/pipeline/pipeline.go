// Package pipeline runs the complete substitution workflow: load the job
// record and structure, derive the equivalent-site table, partition the
// sites into orbits, enumerate the irreducible configurations, and write
// the requested artifacts.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Load: read INDSOD and SPOSCAR and cross-validate them
//  2. Map: apply the operator file to the substituted sublattice
//  3. Partition: orbit-contiguous site relabeling
//  4. Enumerate: walk the configuration space (cached)
//  5. Write: persist the artifacts the job asked for
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Dir: "."})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, o := range result.Enum.Orbits { ... }
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/latticelab/subcell/pkg/config"
	"github.com/latticelab/subcell/pkg/enumerate"
	"github.com/latticelab/subcell/pkg/structure"
	"github.com/latticelab/subcell/pkg/symmetry"
)

// Default input file names, looked up inside Options.Dir.
const (
	DefaultStructureFile = "SPOSCAR"
	DefaultOperatorFile  = "SGO"
)

// Options contains all configuration for the pipeline.
type Options struct {
	// Dir is the working directory holding the input files. Defaults to ".".
	Dir string

	// ConfigFile, StructureFile, OperatorFile override the conventional
	// input file names inside Dir.
	ConfigFile    string
	StructureFile string
	OperatorFile  string

	// OutDir receives the artifacts. Defaults to Dir.
	OutDir string

	// Diagram additionally writes the orbit diagram (DOT and SVG).
	Diagram bool

	// SkipArtifacts runs the pipeline without writing anything, for
	// inspection commands.
	SkipArtifacts bool

	// Refresh bypasses the cache probe (the result is still stored).
	Refresh bool

	// Progress overrides the job record's progress setting when non-nil.
	Progress enumerate.Reporter

	// Logger receives stage logging. Defaults to the runner's logger.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults fills in defaults. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.ConfigFile == "" {
		o.ConfigFile = config.DefaultFilename
	}
	if o.StructureFile == "" {
		o.StructureFile = DefaultStructureFile
	}
	if o.OperatorFile == "" {
		o.OperatorFile = DefaultOperatorFile
	}
	if o.OutDir == "" {
		o.OutDir = o.Dir
	}
	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and artifact comments.
	RunID string

	// Job is the validated job record.
	Job *config.Job

	// Cell is the structure with the substituted sublattice in canonical
	// (orbit-contiguous) site order.
	Cell *structure.Cell

	// Map is the equivalent-site table the enumerator used.
	Map *symmetry.SiteMap

	// Orbits is the site partition.
	Orbits *symmetry.Orbits

	// Enum holds the irreducible configurations and degeneracies.
	Enum *enumerate.Result

	// Artifacts lists the files written.
	Artifacts []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Sites      int
	Ops        int
	SiteOrbits int
	Total      uint64
	OrbitCount int

	MapTime       time.Duration
	PartitionTime time.Duration
	EnumTime      time.Duration
	WriteTime     time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	EnumHit bool // whether the enumeration came from cache
}
