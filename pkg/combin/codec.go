package combin

import (
	"math/bits"

	"github.com/latticelab/subcell/pkg/errors"
)

// Space is the configuration space of a fixed composition: n sites assigned
// to s species, with exactly k[j] sites holding species j. It provides the
// bijection between ranks in [0, Total()) and assignment vectors.
//
// Assignments use 0-based species labels: a[i] ∈ [0, s). The encoding nests
// colex subset ranks: species 0 picks k[0] of the n sites, species 1 picks
// k[1] of the remaining n−k[0], and so on; the last species fills what is
// left. The per-species ranks combine in mixed radix with species 0 as the
// most significant digit, so rank order sorts first by the placement of
// species 0.
//
// A Space is immutable after construction and safe for concurrent readers.
type Space struct {
	n     int
	k     []int
	m     []int    // m[j]: unassigned sites before species j places
	radix []uint64 // radix[j] = C(m[j], k[j]) for j < s-1
	tail  []uint64 // tail[j] = Π radix[j+1:]; tail[s-2] = 1
	total uint64
	cols  Columns
}

// NewSpace validates the composition and precomputes the binomial table,
// the per-species radices, and the total count N = Π C(m_j, k_j).
// It returns an OVERFLOW error when N does not fit uint64.
func NewSpace(n int, k []int) (*Space, error) {
	if n < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "site count must be positive, got %d", n)
	}
	if len(k) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need at least 2 species, got %d", len(k))
	}
	sum, kmax := 0, 0
	for j, kj := range k {
		if kj < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "species %d has non-positive count %d", j, kj)
		}
		if kj > kmax {
			kmax = kj
		}
		sum += kj
	}
	if sum != n {
		return nil, errors.New(errors.ErrCodeInvalidInput, "composition sums to %d, want %d", sum, n)
	}

	s := len(k)
	sp := &Space{
		n:     n,
		k:     append([]int(nil), k...),
		m:     make([]int, s),
		radix: make([]uint64, s-1),
		tail:  make([]uint64, s-1),
		cols:  NewColumns(n, kmax),
	}

	rem := n
	for j := 0; j < s; j++ {
		sp.m[j] = rem
		rem -= k[j]
	}

	sp.total = 1
	for j := 0; j < s-1; j++ {
		sp.radix[j] = sp.cols.Binomial(sp.m[j], k[j])
		if sp.radix[j] == Saturated {
			return nil, errors.New(errors.ErrCodeOverflow, "C(%d,%d) exceeds uint64", sp.m[j], k[j])
		}
		hi, lo := bits.Mul64(sp.total, sp.radix[j])
		if hi != 0 {
			return nil, errors.New(errors.ErrCodeOverflow, "configuration count exceeds uint64 for n=%d", n)
		}
		sp.total = lo
	}
	for j := s - 2; j >= 0; j-- {
		if j == s-2 {
			sp.tail[j] = 1
		} else {
			sp.tail[j] = sp.tail[j+1] * sp.radix[j+1]
		}
	}
	return sp, nil
}

// Sites returns n, the number of substitution sites.
func (sp *Space) Sites() int { return sp.n }

// Species returns s, the number of substituting species.
func (sp *Space) Species() int { return len(sp.k) }

// Composition returns a copy of the species counts.
func (sp *Space) Composition() []int { return append([]int(nil), sp.k...) }

// Total returns N, the number of configurations of this composition.
func (sp *Space) Total() uint64 { return sp.total }

// FirstRadix returns C(n, k₀), the number of placements of the first
// species alone. Ranks sharing a first-species placement form a contiguous
// slice of Total()/FirstRadix() ranks.
func (sp *Space) FirstRadix() uint64 { return sp.radix[0] }

// Radix returns C(m_j, k_j), the number of placements of species j within
// the sites left over by species 0..j−1. Valid for j in [0, Species()−1).
func (sp *Space) Radix(j int) uint64 { return sp.radix[j] }

// Remaining returns m_j, the number of unassigned sites before species j
// places. Valid for j in [0, Species()).
func (sp *Space) Remaining(j int) int { return sp.m[j] }

// FirstDigit returns the first-species placement rank of r, i.e. the colex
// rank of the species-0 site subset of the configuration at r.
func (sp *Space) FirstDigit(r uint64) uint64 { return r / sp.tail[0] }

// Columns exposes the precomputed binomial table.
func (sp *Space) Columns() Columns { return sp.cols }

// Decode writes the assignment vector for rank r into a, which must have
// length n. It is the inverse of Encode.
func (sp *Space) Decode(r uint64, a []uint8) error {
	if r >= sp.total {
		return errors.New(errors.ErrCodeInvalidInput, "rank %d out of range [0,%d)", r, sp.total)
	}
	if len(a) != sp.n {
		return errors.New(errors.ErrCodeInvalidInput, "assignment length %d, want %d", len(a), sp.n)
	}

	s := len(sp.k)
	remaining := make([]int, sp.n)
	for i := range remaining {
		remaining[i] = i
	}
	sub := make([]int, 0, sp.n)

	for j := 0; j < s-1; j++ {
		d := r / sp.tail[j]
		r -= d * sp.tail[j]

		sub = sub[:sp.k[j]]
		sp.cols.Unrank(sp.k[j], d, sub)

		// Translate positions within the remaining list to site labels,
		// then drop them from the list.
		for _, p := range sub {
			a[remaining[p]] = uint8(j)
		}
		rest := Complement(sub, sp.m[j])
		for i, p := range rest {
			remaining[i] = remaining[p]
		}
		remaining = remaining[:len(rest)]
	}
	for _, site := range remaining {
		a[site] = uint8(s - 1)
	}
	return nil
}

// Encode returns the rank of the assignment vector a. It refuses vectors
// whose species multiplicities disagree with the composition or whose
// labels fall outside [0, s); it never silently normalizes.
func (sp *Space) Encode(a []uint8) (uint64, error) {
	if len(a) != sp.n {
		return 0, errors.New(errors.ErrCodeInvalidInput, "assignment length %d, want %d", len(a), sp.n)
	}
	s := len(sp.k)
	counts := make([]int, s)
	for i, v := range a {
		if int(v) >= s {
			return 0, errors.New(errors.ErrCodeInvalidInput, "species label %d at site %d outside [0,%d)", v, i, s)
		}
		counts[v]++
	}
	for j, c := range counts {
		if c != sp.k[j] {
			return 0, errors.New(errors.ErrCodeInvalidInput, "species %d occurs %d times, want %d", j, c, sp.k[j])
		}
	}

	remaining := make([]int, sp.n)
	for i := range remaining {
		remaining[i] = i
	}
	sub := make([]int, 0, sp.n)

	var r uint64
	for j := 0; j < s-1; j++ {
		sub = sub[:0]
		for p, site := range remaining {
			if a[site] == uint8(j) {
				sub = append(sub, p)
			}
		}
		if j > 0 {
			r *= sp.radix[j]
		}
		r += sp.cols.Rank(sub)

		rest := Complement(sub, sp.m[j])
		for i, p := range rest {
			remaining[i] = remaining[p]
		}
		remaining = remaining[:len(rest)]
	}
	return r, nil
}

// Verify round-trips a sample of ranks through Decode and Encode and
// returns a CODEC_ROUNDTRIP error on the first mismatch. The enumerator
// runs this during its precompute phase; a failure is fatal.
func (sp *Space) Verify(samples []uint64) error {
	a := make([]uint8, sp.n)
	for _, r := range samples {
		if r >= sp.total {
			continue
		}
		if err := sp.Decode(r, a); err != nil {
			return errors.Wrap(errors.ErrCodeCodecRoundtrip, err, "decode rank %d", r)
		}
		back, err := sp.Encode(a)
		if err != nil {
			return errors.Wrap(errors.ErrCodeCodecRoundtrip, err, "re-encode rank %d", r)
		}
		if back != r {
			return errors.New(errors.ErrCodeCodecRoundtrip, "rank %d decodes to a configuration that encodes to %d", r, back)
		}
	}
	return nil
}
