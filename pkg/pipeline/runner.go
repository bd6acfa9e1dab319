package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/latticelab/subcell/pkg/artifact"
	"github.com/latticelab/subcell/pkg/cache"
	"github.com/latticelab/subcell/pkg/config"
	"github.com/latticelab/subcell/pkg/enumerate"
	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/observability"
	"github.com/latticelab/subcell/pkg/progress"
	"github.com/latticelab/subcell/pkg/spacegroup"
	"github.com/latticelab/subcell/pkg/structure"
	"github.com/latticelab/subcell/pkg/symmetry"
)

// enumCacheTTL bounds how long memoized enumerations live. The inputs are
// content-hashed, so staleness is not a correctness concern, only disk use.
const enumCacheTTL = 30 * 24 * time.Hour

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results, so multiple goroutines can safely share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  *cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a default keyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer *cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewKeyer("")
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the complete load → map → partition → enumerate → write
// pipeline. A cancelled enumeration returns the partial result together
// with a CANCELLED error; nothing is written for it.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if opts.Logger == nil {
		logger = r.Logger
	}

	result := &Result{RunID: uuid.NewString()}

	// Stage 1: Load
	job, err := config.Load(filepath.Join(opts.Dir, opts.ConfigFile))
	if err != nil {
		return nil, err
	}
	cell, err := structure.ReadFile(filepath.Join(opts.Dir, opts.StructureFile))
	if err != nil {
		return nil, err
	}
	if err := job.Validate(cell); err != nil {
		return nil, err
	}
	result.Job = job
	result.Cell = cell
	logger.Info("loaded inputs",
		"run", result.RunID,
		"types", len(cell.Symbols),
		"atoms", cell.Atoms(),
		"species", job.NSub)

	// Stage 2: Map
	mapStart := time.Now()
	ops, err := spacegroup.ReadOperators(filepath.Join(opts.Dir, opts.OperatorFile))
	if err != nil {
		return nil, err
	}
	m, err := spacegroup.MapSites(cell, job.Site-1, job.Prec, ops)
	if m != nil {
		observability.Pipeline().OnMapComplete(ctx, m.Sites(), m.Ops(), time.Since(mapStart), err)
	}
	if err != nil {
		return nil, err
	}
	result.Map = m
	result.Stats.MapTime = time.Since(mapStart)
	result.Stats.Sites = m.Sites()
	result.Stats.Ops = m.Ops()
	logger.Info("mapped sites",
		"sites", m.Sites(),
		"operations", m.Ops(),
		"duration", result.Stats.MapTime)

	// Stage 3: Partition
	partStart := time.Now()
	orbs, err := symmetry.Partition(m)
	if err != nil {
		observability.Pipeline().OnPartitionComplete(ctx, 0, false, time.Since(partStart), err)
		return nil, err
	}
	observability.Pipeline().OnPartitionComplete(ctx, orbs.Count(), !orbs.IsIdentity(), time.Since(partStart), nil)
	if !orbs.IsIdentity() {
		cell.PermuteType(job.Site-1, orbs.Perm)
	}
	result.Orbits = orbs
	result.Stats.PartitionTime = time.Since(partStart)
	result.Stats.SiteOrbits = orbs.Count()
	logger.Info("partitioned sites",
		"orbits", orbs.Count(),
		"relabeled", !orbs.IsIdentity(),
		"duration", result.Stats.PartitionTime)

	// Stage 4: Enumerate (cached)
	enumStart := time.Now()
	k := job.Composition()
	observability.Pipeline().OnEnumerateStart(ctx, m.Sites(), len(k))
	enumRes, hit, err := r.enumerate(ctx, m, orbs, k, job, opts)
	result.Enum = enumRes
	result.CacheInfo.EnumHit = hit
	result.Stats.EnumTime = time.Since(enumStart)
	if enumRes != nil {
		observability.Pipeline().OnEnumerateComplete(ctx, enumRes.Total, len(enumRes.Orbits), result.Stats.EnumTime, err)
	}
	if err != nil {
		return result, err
	}
	result.Stats.Total = enumRes.Total
	result.Stats.OrbitCount = len(enumRes.Orbits)
	logger.Info("enumerated configurations",
		"total", enumRes.Total,
		"irreducible", len(enumRes.Orbits),
		"cached", hit,
		"duration", result.Stats.EnumTime)

	// Stage 5: Write
	if !opts.SkipArtifacts {
		writeStart := time.Now()
		if err := r.write(ctx, opts, result); err != nil {
			return result, err
		}
		result.Stats.WriteTime = time.Since(writeStart)
		logger.Info("wrote artifacts",
			"files", len(result.Artifacts),
			"duration", result.Stats.WriteTime)
	}
	return result, nil
}

// cachedEnum is the cache payload of a completed enumeration.
type cachedEnum struct {
	Total  uint64            `json:"total"`
	Orbits []enumerate.Orbit `json:"orbits"`
}

func (r *Runner) enumerate(ctx context.Context, m *symmetry.SiteMap, orbs *symmetry.Orbits, k []int, job *config.Job, opts Options) (*enumerate.Result, bool, error) {
	table := make([][]int, m.Ops())
	for q := range table {
		table[q] = m.Op(q)
	}
	key := r.Keyer.EnumKey(table, k)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var stored cachedEnum
			if err := json.Unmarshal(data, &stored); err == nil {
				observability.Cache().OnCacheHit(ctx, "enum")
				return &enumerate.Result{Total: stored.Total, Orbits: stored.Orbits}, true, nil
			}
			// Corrupt entry: drop it and recompute.
			_ = r.Cache.Delete(ctx, key)
		}
		observability.Cache().OnCacheMiss(ctx, "enum")
	}

	reporter := opts.Progress
	if reporter == nil && job.ShowProgress {
		reporter = progress.NewBar(os.Stderr)
	}

	res, err := enumerate.Enumerate(ctx, m, orbs, k, enumerate.Options{Progress: reporter})
	if err != nil {
		return res, false, err
	}

	if data, err := json.Marshal(cachedEnum{Total: res.Total, Orbits: res.Orbits}); err == nil {
		if err := r.Cache.Set(ctx, key, data, enumCacheTTL); err != nil {
			r.Logger.Debug("cache store failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "enum", len(data))
		}
	}
	return res, false, nil
}

func (r *Runner) write(ctx context.Context, opts Options, result *Result) error {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", opts.OutDir)
	}
	job := result.Job

	emit := func(name string, write func(f *os.File) error) error {
		path := filepath.Join(opts.OutDir, name)
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", path)
		}
		defer f.Close()
		if err := write(f); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", path)
		}
		result.Artifacts = append(result.Artifacts, path)
		return nil
	}

	if job.WriteEquivalentMatrix {
		if err := emit(artifact.EquivalentMatrixFile, func(f *os.File) error {
			return artifact.WriteEquivalentMatrix(f, result.Map)
		}); err != nil {
			return err
		}
	}
	if job.WriteOperatorMatrix {
		ops, err := spacegroup.ReadOperators(filepath.Join(opts.Dir, opts.OperatorFile))
		if err != nil {
			return err
		}
		if err := emit(artifact.OperatorMatrixFile, func(f *os.File) error {
			return artifact.WriteOperators(f, ops)
		}); err != nil {
			return err
		}
	}
	if job.WriteConfigurations {
		if err := emit(artifact.ConfigurationsFile, func(f *os.File) error {
			return artifact.WriteConfigurations(f, result.Enum.Orbits)
		}); err != nil {
			return err
		}
		if err := emit(artifact.DegeneraciesFile, func(f *os.File) error {
			return artifact.WriteDegeneracies(f, result.Enum.Orbits)
		}); err != nil {
			return err
		}
	}
	if job.WriteStructures {
		dir := filepath.Join(opts.OutDir, "structures")
		if err := artifact.WriteStructures(dir, result.Cell, job.Site-1, job.Symb, result.Enum.Orbits); err != nil {
			return err
		}
		result.Artifacts = append(result.Artifacts, dir)
	}
	if opts.Diagram {
		dot := artifact.OrbitDOT(result.Map, result.Orbits)
		if err := emit("ORBITS.dot", func(f *os.File) error {
			_, err := f.WriteString(dot)
			return err
		}); err != nil {
			return err
		}
		svg, err := artifact.RenderSVG(ctx, dot)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "rendering orbit diagram")
		}
		if err := emit("ORBITS.svg", func(f *os.File) error {
			_, err := f.Write(svg)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}
