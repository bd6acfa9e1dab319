package enumerate

import (
	"context"
	"testing"

	"github.com/latticelab/subcell/pkg/combin"
	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/symmetry"
)

func identityOp(n int) []int {
	id := make([]int, n)
	for i := range id {
		id[i] = i
	}
	return id
}

// allPerms returns every permutation of [0, n) via Heap's algorithm.
func allPerms(n int) [][]int {
	var out [][]int
	p := identityOp(n)
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			out = append(out, append([]int(nil), p...))
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				p[i], p[k-1] = p[k-1], p[i]
			} else {
				p[0], p[k-1] = p[k-1], p[0]
			}
		}
	}
	generate(n)
	return out
}

func mustEnumerate(t *testing.T, ops [][]int, k []int) *Result {
	t.Helper()
	m, err := symmetry.New(ops)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	orbs, err := symmetry.Partition(m)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	res, err := Enumerate(context.Background(), m, orbs, k, Options{})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	return res
}

func TestTrivialGroupEmitsEveryRank(t *testing.T) {
	res := mustEnumerate(t, [][]int{identityOp(4)}, []int{2, 2})
	if len(res.Orbits) != 6 {
		t.Fatalf("orbit count = %d, want 6", len(res.Orbits))
	}
	for i, o := range res.Orbits {
		if o.Rank != uint64(i) {
			t.Errorf("orbit %d has rank %d, want %d", i, o.Rank, i)
		}
		if o.Degeneracy != 1 {
			t.Errorf("rank %d degeneracy = %d, want 1", o.Rank, o.Degeneracy)
		}
	}
}

func TestFullSymmetricGroupCollapsesToOneOrbit(t *testing.T) {
	res := mustEnumerate(t, allPerms(4), []int{2, 2})
	if len(res.Orbits) != 1 {
		t.Fatalf("orbit count = %d, want 1", len(res.Orbits))
	}
	if res.Orbits[0].Rank != 0 || res.Orbits[0].Degeneracy != 6 {
		t.Errorf("orbit = (%d, %d), want (0, 6)", res.Orbits[0].Rank, res.Orbits[0].Degeneracy)
	}
}

func TestCyclicGroup(t *testing.T) {
	res := mustEnumerate(t, [][]int{
		{0, 1, 2, 3},
		{1, 2, 3, 0},
		{2, 3, 0, 1},
		{3, 0, 1, 2},
	}, []int{2, 2})
	if len(res.Orbits) != 2 {
		t.Fatalf("orbit count = %d, want 2", len(res.Orbits))
	}
	var sum uint64
	degs := map[uint64]bool{}
	for _, o := range res.Orbits {
		sum += o.Degeneracy
		degs[o.Degeneracy] = true
	}
	if sum != 6 {
		t.Errorf("degeneracy sum = %d, want 6", sum)
	}
	if !degs[4] || !degs[2] {
		t.Errorf("degeneracies = %v, want {4, 2}", degs)
	}
}

func TestTernaryTrivialGroup(t *testing.T) {
	res := mustEnumerate(t, [][]int{identityOp(6)}, []int{2, 2, 2})
	if len(res.Orbits) != 90 {
		t.Fatalf("orbit count = %d, want 90", len(res.Orbits))
	}
	for i, o := range res.Orbits {
		if o.Rank != uint64(i) || o.Degeneracy != 1 {
			t.Fatalf("orbit %d = (%d, %d), want (%d, 1)", i, o.Rank, o.Degeneracy, i)
		}
	}
}

func TestTernaryFullSymmetricGroup(t *testing.T) {
	res := mustEnumerate(t, allPerms(6), []int{2, 2, 2})
	if len(res.Orbits) != 1 {
		t.Fatalf("orbit count = %d, want 1", len(res.Orbits))
	}
	if res.Orbits[0].Rank != 0 || res.Orbits[0].Degeneracy != 90 {
		t.Errorf("orbit = (%d, %d), want (0, 90)", res.Orbits[0].Rank, res.Orbits[0].Degeneracy)
	}
}

func TestMixedOrbitDegeneracies(t *testing.T) {
	// Two site orbits {0,1} and {2,3}; the group swaps within each orbit
	// independently. Placements split by how the first species straddles
	// the orbits: fully inside one orbit (degeneracy 1) or mixed across
	// both (a single orbit of the four straddling placements).
	res := mustEnumerate(t, [][]int{
		{0, 1, 2, 3},
		{1, 0, 2, 3},
		{0, 1, 3, 2},
		{1, 0, 3, 2},
	}, []int{2, 2})
	if len(res.Orbits) != 3 {
		t.Fatalf("orbit count = %d, want 3", len(res.Orbits))
	}
	want := map[uint64]uint64{0: 1, 1: 4, 5: 1}
	for _, o := range res.Orbits {
		if want[o.Rank] != o.Degeneracy {
			t.Errorf("rank %d degeneracy = %d, want %d", o.Rank, o.Degeneracy, want[o.Rank])
		}
	}
}

func TestUnbalancedComposition(t *testing.T) {
	// First species less abundant than the rest; exercises the exposure
	// policy away from the symmetric case.
	res := mustEnumerate(t, [][]int{
		{0, 1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5, 0},
		{2, 3, 4, 5, 0, 1},
		{3, 4, 5, 0, 1, 2},
		{4, 5, 0, 1, 2, 3},
		{5, 0, 1, 2, 3, 4},
	}, []int{1, 2, 3})
	var sum uint64
	for _, o := range res.Orbits {
		sum += o.Degeneracy
	}
	if sum != res.Total {
		t.Errorf("degeneracy sum = %d, want N = %d", sum, res.Total)
	}
	if res.Total != 60 {
		t.Errorf("Total = %d, want 60", res.Total)
	}
	if len(res.Orbits) != 10 {
		// 60 configurations under a free cyclic action of order 6.
		t.Errorf("orbit count = %d, want 10", len(res.Orbits))
	}
}

func TestOrbitProperties(t *testing.T) {
	ops := [][]int{
		{0, 1, 2, 3, 4, 5},
		{3, 4, 5, 0, 1, 2},
	}
	m, err := symmetry.New(ops)
	if err != nil {
		t.Fatal(err)
	}
	orbs, err := symmetry.Partition(m)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Enumerate(context.Background(), m, orbs, []int{2, 2, 2}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Membership, minimality, and disjointness: expanding each emitted
	// representative over the operations yields exactly Degeneracy distinct
	// ranks, the representative is their minimum, and no rank appears under
	// two representatives.
	sp, err := combin.NewSpace(m.Sites(), []int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	covered := make(map[uint64]uint64)
	b := make([]uint8, m.Sites())
	prev := int64(-1)
	for _, o := range res.Orbits {
		if int64(o.Rank) <= prev {
			t.Fatalf("ranks not strictly increasing at %d", o.Rank)
		}
		prev = int64(o.Rank)

		members := make(map[uint64]bool)
		for q := 0; q < m.Ops(); q++ {
			m.Apply(q, o.Assign, b)
			r, err := sp.Encode(b)
			if err != nil {
				t.Fatal(err)
			}
			if r < o.Rank {
				t.Errorf("rank %d has orbit member %d below it", o.Rank, r)
			}
			members[r] = true
		}
		if uint64(len(members)) != o.Degeneracy {
			t.Errorf("rank %d: %d distinct members, degeneracy says %d", o.Rank, len(members), o.Degeneracy)
		}
		for r := range members {
			if owner, dup := covered[r]; dup {
				t.Errorf("rank %d claimed by both %d and %d", r, owner, o.Rank)
			}
			covered[r] = o.Rank
		}
	}
	if uint64(len(covered)) != res.Total {
		t.Errorf("orbits cover %d ranks, want %d", len(covered), res.Total)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := symmetry.New([][]int{identityOp(6)})
	if err != nil {
		t.Fatal(err)
	}
	orbs, err := symmetry.Partition(m)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Enumerate(ctx, m, orbs, []int{3, 3}, Options{})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("error = %v, want CANCELLED", err)
	}
	if res == nil || !res.Partial {
		t.Fatal("cancelled run must return a partial result")
	}
}

func TestProgressReporting(t *testing.T) {
	rec := &recordingReporter{}
	m, err := symmetry.New([][]int{identityOp(4)})
	if err != nil {
		t.Fatal(err)
	}
	orbs, err := symmetry.Partition(m)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Enumerate(context.Background(), m, orbs, []int{2, 2}, Options{Progress: rec}); err != nil {
		t.Fatal(err)
	}
	if rec.total != 6 {
		t.Errorf("Set(%d), want 6", rec.total)
	}
	if len(rec.puts) != 6 || rec.puts[len(rec.puts)-1] != 6 {
		t.Errorf("puts = %v, want one per outer iteration ending at 6", rec.puts)
	}
}

type recordingReporter struct {
	total uint64
	puts  []uint64
}

func (r *recordingReporter) Set(total uint64)   { r.total = total }
func (r *recordingReporter) Put(current uint64) { r.puts = append(r.puts, current) }
