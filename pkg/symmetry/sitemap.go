// Package symmetry holds the equivalent-site action of a supercell's space
// group over the substitution sublattice, and partitions the sites into
// orbits of that action.
//
// The action is a table: for each operation q and site i, Image(i, q) is the
// site that operation q sends i to. Sites are 0-based throughout; file
// readers and writers translate to the 1-based labels used on disk.
package symmetry

import (
	"github.com/latticelab/subcell/pkg/errors"
)

// SiteMap is the equivalent-site table of n sites under o operations.
// Each operation is a permutation of the sites, and the identity operation
// is always present. Once partitioned, the site labeling is canonical:
// orbits occupy contiguous, ascending blocks.
type SiteMap struct {
	n   int
	ops [][]int // ops[q][i] = image of site i under operation q
}

// New validates the table and wraps it in a SiteMap. Each row must be a
// permutation of [0, n) and the identity must be among the rows; anything
// else is a SYMMETRY_INTEGRITY failure of the upstream symmetry step.
func New(ops [][]int) (*SiteMap, error) {
	if len(ops) == 0 {
		return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "empty operation table")
	}
	n := len(ops[0])
	if n == 0 {
		return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "operation table has no sites")
	}

	hit := make([]bool, n)
	haveIdentity := false
	for q, op := range ops {
		if len(op) != n {
			return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "operation %d maps %d sites, want %d", q, len(op), n)
		}
		for i := range hit {
			hit[i] = false
		}
		identity := true
		for i, img := range op {
			if img < 0 || img >= n {
				return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "operation %d sends site %d to %d, outside [0,%d)", q, i, img, n)
			}
			if hit[img] {
				return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "operation %d is not a permutation: site %d hit twice", q, img)
			}
			hit[img] = true
			if img != i {
				identity = false
			}
		}
		if identity {
			haveIdentity = true
		}
	}
	if !haveIdentity {
		return nil, errors.New(errors.ErrCodeSymmetryIntegrity, "operation table does not contain the identity")
	}
	return &SiteMap{n: n, ops: ops}, nil
}

// Sites returns the number of substitution sites.
func (m *SiteMap) Sites() int { return m.n }

// Ops returns the number of operations.
func (m *SiteMap) Ops() int { return len(m.ops) }

// Image returns the site that operation q sends site i to.
func (m *SiteMap) Image(i, q int) int { return m.ops[q][i] }

// Op returns operation q's full image row. The slice is shared; callers
// must not modify it.
func (m *SiteMap) Op(q int) []int { return m.ops[q] }

// Apply writes the pullback of the assignment a under operation q into dst:
// dst[i] = a[Image(i, q)]. dst and a must both have length Sites() and must
// not alias.
func (m *SiteMap) Apply(q int, a, dst []uint8) {
	for i, img := range m.ops[q] {
		dst[i] = a[img]
	}
}
