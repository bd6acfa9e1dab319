// Package enumerate walks the configuration space of a substituted
// sublattice and emits one canonical representative per orbit of the
// space-group action, together with its degeneracy (orbit size).
//
// The walk never materializes the full rank space. Placements of the first
// species are tracked in a bitmap of C(n, k₀) bits; deeper species are
// enumerated recursively under the stabilizer chain of the representatives
// chosen so far, each level with its own sub-bitmap over the remaining-site
// subspace. Representatives are emitted in strictly increasing rank order,
// each being the minimum rank of its orbit, and the emitted degeneracies
// sum to the multinomial total N.
package enumerate

import (
	"context"
	"sort"

	"github.com/latticelab/subcell/pkg/combin"
	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/symmetry"
)

// Reporter receives progress during the outer walk. Set is called once with
// the number of first-species placements; Put after every outer iteration
// with the count completed so far. Implementations must not block for long
// and must not mutate enumerator inputs.
type Reporter interface {
	Set(total uint64)
	Put(current uint64)
}

// Orbit is one emitted equivalence class of configurations.
type Orbit struct {
	Rank       uint64  // minimum rank in the orbit (canonical representative)
	Degeneracy uint64  // orbit size
	Assign     []uint8 // representative assignment, 0-based species per site
}

// Result is the outcome of an enumeration.
type Result struct {
	Orbits []Orbit
	Total  uint64 // N, the size of the configuration space
	// Partial marks a cancelled run: the orbits listed are valid
	// representatives but the enumeration is incomplete.
	Partial bool
}

// Options tunes an enumeration run.
type Options struct {
	// Progress, when non-nil, receives outer-walk progress.
	Progress Reporter
}

// maxBitmapBits bounds any per-level placement bitmap. Enumeration cost is
// proportional to the bitmap sweep, so runs past this bound are infeasible
// long before the allocation matters.
const maxBitmapBits = uint64(1) << 40

// Enumerate lists the symmetry-irreducible configurations of composition k
// over the sites of m, whose labeling must already be orbit-contiguous as
// produced by symmetry.Partition. The walk checks ctx between outer
// iterations; on cancellation it returns the partial result together with a
// CANCELLED error.
func Enumerate(ctx context.Context, m *symmetry.SiteMap, orbs *symmetry.Orbits, k []int, opts Options) (*Result, error) {
	sp, err := combin.NewSpace(m.Sites(), k)
	if err != nil {
		return nil, err
	}
	for j := 0; j < len(k)-1; j++ {
		if sp.Radix(j) > maxBitmapBits {
			return nil, errors.New(errors.ErrCodeOverflow,
				"species %d placement bitmap needs %d bits", j, sp.Radix(j))
		}
	}

	// Sample the codec round trip before committing to the walk; a mismatch
	// is a fatal defect, not something to retry.
	total := sp.Total()
	if err := sp.Verify([]uint64{0, 1, total / 2, total - 1}); err != nil {
		return nil, err
	}

	w := &walker{
		m:     m,
		sp:    sp,
		cols:  sp.Columns(),
		k:     k,
		s:     len(k),
		n:     m.Sites(),
		a:     make([]uint8, m.Sites()),
		b:     make([]uint8, m.Sites()),
		img:   make([]int, m.Sites()),
		posOf: make([]int, m.Sites()),
		seen:  make(map[uint64]struct{}, m.Ops()),
		opts:  opts,
	}
	w.prefixEnd = orbs.Bounds[orbs.Exposed(k[0])]
	w.occ = make([]*bitSet, w.s-1)
	w.subs = make([][]int, w.s-1)
	for j := 0; j < w.s-1; j++ {
		w.occ[j] = newBitSet(sp.Radix(j))
		w.subs[j] = make([]int, k[j])
	}

	allSites := make([]int, w.n)
	allOps := make([]int, m.Ops())
	for i := range allSites {
		allSites[i] = i
	}
	for q := range allOps {
		allOps[q] = q
	}

	if opts.Progress != nil {
		opts.Progress.Set(sp.FirstRadix())
	}

	res := &Result{Total: total}
	walkErr := w.descend(ctx, 0, allSites, allOps)
	res.Orbits = w.out
	if walkErr != nil {
		if errors.Is(walkErr, errors.ErrCodeCancelled) {
			res.Partial = true
			return res, walkErr
		}
		return nil, walkErr
	}

	var sum uint64
	for _, o := range res.Orbits {
		sum += o.Degeneracy
	}
	if sum != total {
		return nil, errors.New(errors.ErrCodeSymmetryIntegrity,
			"degeneracies sum to %d, want %d", sum, total)
	}
	return res, nil
}

type walker struct {
	m    *symmetry.SiteMap
	sp   *combin.Space
	cols combin.Columns
	k    []int
	s    int
	n    int

	occ  []*bitSet // per-level placement bitmaps, level j sized Radix(j)
	subs [][]int   // per-level subset scratch

	a     []uint8 // assignment under construction
	b     []uint8 // orbit expansion scratch
	img   []int   // subset image scratch
	posOf []int   // site -> position in the current remaining list
	seen  map[uint64]struct{}

	prefixEnd int // exposed orbit prefix: representatives must touch [0, prefixEnd)
	opts      Options
	out       []Orbit
}

// descend enumerates the placements of species level over the remaining
// sites under the active operations, recursing into the stabilizer of each
// representative placement. The last species fills whatever remains.
func (w *walker) descend(ctx context.Context, level int, remaining, active []int) error {
	if level == w.s-1 {
		for _, site := range remaining {
			w.a[site] = uint8(level)
		}
		return w.emit()
	}

	size := w.sp.Radix(level)
	occ := w.occ[level]
	occ.reset()
	inv := w.inducedInverses(remaining, active)
	sub := w.subs[level]

	for d := uint64(0); d < size; d++ {
		if level == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(errors.ErrCodeCancelled, err,
					"cancelled at first-species placement %d of %d", d, size)
			}
		}
		if !occ.get(d) {
			w.cols.Unrank(w.k[level], d, sub)
			if level == 0 && sub[0] >= w.prefixEnd {
				// Cannot represent an orbit: the placement misses every
				// exposed orbit. With the partitioner's prefix policy this
				// is unreachable, but the filter is what makes the claim.
				continue
			}
			stab := w.markOrbit(occ, sub, active, inv)
			for _, p := range sub {
				w.a[remaining[p]] = uint8(level)
			}
			rest := combin.Complement(sub, len(remaining))
			next := make([]int, len(rest))
			for i, p := range rest {
				next[i] = remaining[p]
			}
			if err := w.descend(ctx, level+1, next, stab); err != nil {
				return err
			}
		}
		if level == 0 && w.opts.Progress != nil {
			w.opts.Progress.Put(d + 1)
		}
	}
	return nil
}

// inducedInverses returns, for each active operation, the inverse of its
// induced permutation on the remaining-site list: out[qi][u] = t means the
// operation sends remaining[t] to remaining[u].
func (w *walker) inducedInverses(remaining, active []int) [][]int {
	for i := range w.posOf {
		w.posOf[i] = -1
	}
	for t, site := range remaining {
		w.posOf[site] = t
	}
	out := make([][]int, len(active))
	for qi, q := range active {
		inv := make([]int, len(remaining))
		for t, site := range remaining {
			u := w.posOf[w.m.Image(site, q)]
			inv[u] = t
		}
		out[qi] = inv
	}
	return out
}

// markOrbit applies every active operation to the placement sub, marks each
// image's rank in occ, and returns the operations that fix the placement
// setwise. sub holds ascending positions within the current remaining list.
func (w *walker) markOrbit(occ *bitSet, sub []int, active []int, inv [][]int) []int {
	base := w.cols.Rank(sub)
	img := w.img[:len(sub)]
	var stab []int
	for qi, q := range active {
		for t, p := range sub {
			img[t] = inv[qi][p]
		}
		sort.Ints(img)
		r := w.cols.Rank(img)
		occ.set(r)
		if r == base {
			stab = append(stab, q)
		}
	}
	return stab
}

// emit records the completed assignment as a new orbit representative. The
// orbit is expanded over every operation to obtain the exact degeneracy;
// with exact expansion the mixed-orbit correction factor is always one, so
// the expansion doubles as its consistency gate. The representative must be
// the minimum rank of its orbit and ranks must be emitted ascending;
// violations indicate a defect in a collaborator and are fatal.
func (w *walker) emit() error {
	r, err := w.sp.Encode(w.a)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCodecRoundtrip, err, "encoding representative")
	}

	clear(w.seen)
	minRank := r
	for q := 0; q < w.m.Ops(); q++ {
		w.m.Apply(q, w.a, w.b)
		rq, err := w.sp.Encode(w.b)
		if err != nil {
			return errors.Wrap(errors.ErrCodeSymmetryIntegrity, err,
				"operation %d does not preserve the composition", q)
		}
		w.seen[rq] = struct{}{}
		if rq < minRank {
			minRank = rq
		}
	}
	if minRank != r {
		return errors.New(errors.ErrCodeSymmetryIntegrity,
			"representative rank %d is not its orbit minimum %d", r, minRank)
	}
	if len(w.out) > 0 && w.out[len(w.out)-1].Rank >= r {
		return errors.New(errors.ErrCodeSymmetryIntegrity,
			"rank %d emitted out of order after %d", r, w.out[len(w.out)-1].Rank)
	}

	w.out = append(w.out, Orbit{
		Rank:       r,
		Degeneracy: uint64(len(w.seen)),
		Assign:     append([]uint8(nil), w.a...),
	})
	return nil
}
