package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/latticelab/subcell/pkg/cache"
	"github.com/latticelab/subcell/pkg/errors"
)

const testINDSOD = `
nsub = 2
subs = [2, 2]
symb = ["Li", "Na"]
site = 1
leqa = true
lpos = true
`

const testSPOSCAR = `Li4 O1 chain
1.0
  4.0000000000  0.0000000000  0.0000000000
  0.0000000000  1.0000000000  0.0000000000
  0.0000000000  0.0000000000  1.0000000000
Li O
4 1
Direct
  0.000000  0.000000  0.000000
  0.250000  0.000000  0.000000
  0.500000  0.000000  0.000000
  0.750000  0.000000  0.000000
  0.100000  0.500000  0.500000
`

// The full translation group of the 4-site chain.
const testSGO = `
1 0 0  0.00
0 1 0  0.00
0 0 1  0.00

1 0 0  0.25
0 1 0  0.00
0 0 1  0.00

1 0 0  0.50
0 1 0  0.00
0 0 1  0.00

1 0 0  0.75
0 1 0  0.00
0 0 1  0.00
`

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"INDSOD":  testINDSOD,
		"SPOSCAR": testSPOSCAR,
		"SGO":     testSGO,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func quietRunner(t *testing.T, c cache.Cache) *Runner {
	t.Helper()
	return NewRunner(c, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestExecute(t *testing.T) {
	dir := writeInputs(t)
	r := quietRunner(t, cache.NewNullCache())

	res, err := r.Execute(context.Background(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stats.Sites != 4 || res.Stats.Ops != 4 {
		t.Errorf("Stats = %+v, want 4 sites and 4 ops", res.Stats)
	}
	if res.Stats.Total != 6 {
		t.Errorf("Total = %d, want 6", res.Stats.Total)
	}
	// The cyclic translation group splits the 6 binary configurations
	// into two orbits.
	if res.Stats.OrbitCount != 2 {
		t.Errorf("OrbitCount = %d, want 2", res.Stats.OrbitCount)
	}
	if res.RunID == "" {
		t.Error("RunID not set")
	}

	confgl, err := os.ReadFile(filepath.Join(dir, "CONFGL"))
	if err != nil {
		t.Fatalf("CONFGL not written: %v", err)
	}
	if lines := strings.Count(string(confgl), "\n"); lines != 2 {
		t.Errorf("CONFGL has %d lines, want 2", lines)
	}
	confgd, err := os.ReadFile(filepath.Join(dir, "CONFGD"))
	if err != nil {
		t.Fatalf("CONFGD not written: %v", err)
	}
	var sum int
	for _, f := range strings.Fields(string(confgd)) {
		switch f {
		case "4":
			sum += 4
		case "2":
			sum += 2
		default:
			t.Errorf("unexpected degeneracy %q", f)
		}
	}
	if sum != 6 {
		t.Errorf("degeneracies sum to %d, want 6", sum)
	}

	if _, err := os.Stat(filepath.Join(dir, "EQAMAT")); err != nil {
		t.Errorf("EQAMAT not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "structures", "c00001.vasp")); err != nil {
		t.Errorf("per-orbit structure not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "SPGMAT")); err == nil {
		t.Error("SPGMAT written although lspg is false")
	}
}

func TestExecuteUsesCache(t *testing.T) {
	dir := writeInputs(t)
	fc, err := cache.NewFileCache(filepath.Join(dir, "cachedir"))
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(t, fc)

	first, err := r.Execute(context.Background(), Options{Dir: dir, SkipArtifacts: true})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.EnumHit {
		t.Error("first run should not hit the cache")
	}

	second, err := r.Execute(context.Background(), Options{Dir: dir, SkipArtifacts: true})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.EnumHit {
		t.Error("second run should hit the cache")
	}
	if len(second.Enum.Orbits) != len(first.Enum.Orbits) {
		t.Errorf("cached orbits = %d, want %d", len(second.Enum.Orbits), len(first.Enum.Orbits))
	}
	for i := range first.Enum.Orbits {
		if second.Enum.Orbits[i].Rank != first.Enum.Orbits[i].Rank ||
			second.Enum.Orbits[i].Degeneracy != first.Enum.Orbits[i].Degeneracy {
			t.Errorf("orbit %d differs after cache round trip", i)
		}
	}

	refreshed, err := r.Execute(context.Background(), Options{Dir: dir, SkipArtifacts: true, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.EnumHit {
		t.Error("refresh must bypass the cache probe")
	}
}

func TestExecuteMissingInputs(t *testing.T) {
	dir := t.TempDir()
	r := quietRunner(t, cache.NewNullCache())
	_, err := r.Execute(context.Background(), Options{Dir: dir})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExecuteCancelled(t *testing.T) {
	dir := writeInputs(t)
	r := quietRunner(t, cache.NewNullCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Execute(ctx, Options{Dir: dir})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("error = %v, want CANCELLED", err)
	}
	if res == nil || res.Enum == nil || !res.Enum.Partial {
		t.Error("cancelled run must surface the partial result")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "CONFGL")); statErr == nil {
		t.Error("cancelled run must not write artifacts")
	}
}
