package symmetry

import (
	"sort"

	"github.com/latticelab/subcell/pkg/errors"
)

// Orbits is an ordered partition of the sites into orbits of the group
// action, produced by Partition. Orbit b occupies sites
// [Bounds[b], Bounds[b+1]) of the reordered labeling.
type Orbits struct {
	// Bounds holds the orbit boundaries: Bounds[0] = 0 and
	// Bounds[len(Bounds)-1] = n.
	Bounds []int

	// Perm is the site-label permutation applied by Partition: new position
	// i holds what was old position Perm[i]. External per-site arrays
	// (coordinates, metadata) must be rewritten under the same permutation.
	// Perm is the identity when no reordering was needed.
	Perm []int
}

// Count returns the number of orbits.
func (o *Orbits) Count() int { return len(o.Bounds) - 1 }

// Size returns the size of orbit b.
func (o *Orbits) Size(b int) int { return o.Bounds[b+1] - o.Bounds[b] }

// Exposed returns the number of prefix orbits whose cumulative size reaches
// at least n − k₁ + 1, where k₁ is the first species' count. Every
// placement of k₁ atoms must touch this prefix, which is what lets the
// enumerator fix representatives by a prefix test.
func (o *Orbits) Exposed(k1 int) int {
	n := o.Bounds[len(o.Bounds)-1]
	need := n - k1 + 1
	for b := 1; b < len(o.Bounds); b++ {
		if o.Bounds[b] >= need {
			return b
		}
	}
	return o.Count()
}

// IsIdentity reports whether Partition left the site labeling unchanged.
func (o *Orbits) IsIdentity() bool {
	for i, p := range o.Perm {
		if i != p {
			return false
		}
	}
	return true
}

// Partition splits the sites of m into orbits of the group action, relabels
// the sites so that orbits are contiguous ascending blocks, and rewrites the
// table of m to the new labeling in place. The returned Orbits carries the
// orbit boundaries and the label permutation; callers owning per-site data
// keyed by the old labels must rewrite it under Orbits.Perm.
//
// If some operation maps an orbit outside itself the operation set is not
// closed and a SYMMETRY_INTEGRITY error is returned.
func Partition(m *SiteMap) (*Orbits, error) {
	n := m.Sites()

	unseen := make([]bool, n)
	for i := range unseen {
		unseen[i] = true
	}
	order := make([]int, 0, n)
	bounds := []int{0}

	for i := 0; i < n; i++ {
		if !unseen[i] {
			continue
		}
		start := len(order)
		for q := 0; q < m.Ops(); q++ {
			img := m.Image(i, q)
			if unseen[img] {
				unseen[img] = false
				order = append(order, img)
			}
		}
		// Canonical within-orbit order is ascending old labels.
		sort.Ints(order[start:])
		bounds = append(bounds, len(order))
	}

	o := &Orbits{Bounds: bounds, Perm: order}
	if !o.IsIdentity() {
		m.relabel(order)
	}
	if err := checkClosure(m, o); err != nil {
		return nil, err
	}
	return o, nil
}

// relabel rewrites the table under the permutation order (new position i
// holds old site order[i]). The new table is built into fresh rows and then
// swapped in; rewriting rows in place would corrupt entries still to be
// read.
func (m *SiteMap) relabel(order []int) {
	n := m.n
	pos := make([]int, n) // pos[old] = new
	for i, old := range order {
		pos[old] = i
	}
	for q, op := range m.ops {
		fresh := make([]int, n)
		for i := 0; i < n; i++ {
			fresh[i] = pos[op[order[i]]]
		}
		m.ops[q] = fresh
	}
}

// checkClosure verifies that every operation maps each orbit block to
// itself setwise.
func checkClosure(m *SiteMap, o *Orbits) error {
	for b := 0; b < o.Count(); b++ {
		lo, hi := o.Bounds[b], o.Bounds[b+1]
		for q := 0; q < m.Ops(); q++ {
			for i := lo; i < hi; i++ {
				img := m.Image(i, q)
				if img < lo || img >= hi {
					return errors.New(errors.ErrCodeSymmetryIntegrity,
						"operation %d maps site %d out of its orbit [%d,%d)", q, i, lo, hi)
				}
			}
		}
	}
	return nil
}
