// Package combin provides the combinatorial primitives behind configuration
// enumeration: binomial coefficients, colex ranking of k-subsets, and the
// rank ↔ assignment codec for multinomial configuration spaces.
//
// Subsets are ascending slices of 0-based site indices. The colex rank of a
// k-subset {s₀ < s₁ < … < s_{k−1}} is Σ C(sᵢ, i+1), which orders subsets by
// their largest element first. Ranks are uint64; values that would exceed
// uint64 saturate at Saturated and must be rejected by the caller before use.
package combin

import "math/bits"

// Saturated is the sentinel for a binomial value that does not fit uint64.
// Any arithmetic involving Saturated stays saturated.
const Saturated = ^uint64(0)

// Binomial returns C(n, k), or 0 when k < 0 or k > n.
// Results that do not fit uint64 return Saturated.
func Binomial(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := uint64(1)
	for i := 1; i <= k; i++ {
		hi, lo := bits.Mul64(r, uint64(n-k+i))
		if hi >= uint64(i) {
			return Saturated
		}
		r, _ = bits.Div64(hi, lo, uint64(i))
	}
	return r
}

// Columns is a precomputed binomial table stored column-major:
// Columns[j][p] = C(p, j). Column j is nondecreasing in p, which makes
// rank inversion a binary search. Entries that overflow uint64 hold
// Saturated.
type Columns [][]uint64

// NewColumns builds binomial columns for p ∈ [0, n] and j ∈ [0, kmax].
func NewColumns(n, kmax int) Columns {
	c := make(Columns, kmax+1)
	c[0] = make([]uint64, n+1)
	for p := 0; p <= n; p++ {
		c[0][p] = 1
	}
	for j := 1; j <= kmax; j++ {
		c[j] = make([]uint64, n+1)
		for p := j; p <= n; p++ {
			a, b := c[j][p-1], c[j-1][p-1]
			sum := a + b
			if a == Saturated || b == Saturated || sum < a {
				sum = Saturated
			}
			c[j][p] = sum
		}
	}
	return c
}

// Binomial returns C(p, j) from the table, or 0 when j or p is out of range.
func (c Columns) Binomial(p, j int) uint64 {
	if j < 0 || j >= len(c) || p < 0 || p >= len(c[j]) {
		return 0
	}
	return c[j][p]
}

// Rank returns the colex rank of the ascending subset within the table's
// index range.
func (c Columns) Rank(set []int) uint64 {
	var r uint64
	for i, s := range set {
		r += c[i+1][s]
	}
	return r
}

// Unrank decodes the colex rank r of a k-subset into dst, which must have
// length k. The caller guarantees r < C(m, k) for the intended ground set
// size m; the decoded elements then lie in [0, m).
func (c Columns) Unrank(k int, r uint64, dst []int) {
	for j := k; j >= 1; j-- {
		e := SearchLE(c[j], r)
		dst[j-1] = e
		r -= c[j][e]
	}
}

// SearchLE returns the largest index i with a[i] <= v, assuming a is
// ascending (non-strictly). If v >= a[len(a)-1] the last index is returned.
// a must be non-empty and a[0] <= v.
func SearchLE(a []uint64, v uint64) int {
	lo, hi := 0, len(a)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if a[mid] <= v {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Complement returns the ascending elements of [0, m) not present in the
// ascending subset sub.
func Complement(sub []int, m int) []int {
	out := make([]int, 0, m-len(sub))
	next := 0
	for _, s := range sub {
		for ; next < s; next++ {
			out = append(out, next)
		}
		next = s + 1
	}
	for ; next < m; next++ {
		out = append(out, next)
	}
	return out
}
