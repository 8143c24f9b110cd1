package hilbert

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/cohenw/hilbertcluster/randx"
)

// Permutation is a bijection on {0..d-1} describing how input axes are
// reordered before Hilbert encoding. Axis i of the encoded point is
// taken from axis p[i] of the source point.
//
// Permutations are immutable after construction; Scramble returns a new
// value and never mutates its receiver.
type Permutation []int

// Identity returns the identity permutation of degree d.
func Identity(d int) Permutation {
	p := make(Permutation, d)
	for i := range p {
		p[i] = i
	}
	return p
}

// Degree returns the number of axes the permutation acts on.
func (p Permutation) Degree() int { return len(p) }

// Valid reports whether p is a bijection on {0..d-1}.
func (p Permutation) Valid() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return len(p) > 0
}

// Equal reports whether p and q describe the same reordering.
func (p Permutation) Equal(q Permutation) bool { return slices.Equal(p, q) }

// Clone returns an independent copy of p.
func (p Permutation) Clone() Permutation { return slices.Clone(p) }

// Apply writes the reordered coordinates of src into dst, which must
// have the same length as p.
func (p Permutation) Apply(src []uint32, dst []uint32) {
	for i, j := range p {
		dst[i] = src[j]
	}
}

// Scramble returns a new permutation differing from p in at most k
// positions: k distinct positions are chosen and the values at those
// positions are shuffled among themselves. k is clamped to [1, d].
//
// All draws for one candidate happen inside a single critical section
// of the shared source, so concurrent scrambles interleave at candidate
// granularity rather than draw granularity.
func (p Permutation) Scramble(rng *randx.Source, k int) Permutation {
	d := len(p)
	if k < 1 {
		k = 1
	}
	if k > d {
		k = d
	}

	q := slices.Clone(p)
	rng.Do(func(r *rand.Rand) {
		idx := r.Perm(d)[:k]
		vals := make([]int, k)
		for i, j := range idx {
			vals[i] = q[j]
		}
		r.Shuffle(k, func(a, b int) {
			vals[a], vals[b] = vals[b], vals[a]
		})
		for i, j := range idx {
			q[j] = vals[i]
		}
	})
	return q
}

// ErrInvalidPermutation indicates a permutation that is not a bijection
// on {0..d-1} or whose degree does not match the point set.
type ErrInvalidPermutation struct {
	Degree   int
	Expected int
}

func (e *ErrInvalidPermutation) Error() string {
	if e.Expected != 0 && e.Degree != e.Expected {
		return fmt.Sprintf("invalid permutation: degree %d, expected %d", e.Degree, e.Expected)
	}
	return fmt.Sprintf("invalid permutation of degree %d", e.Degree)
}
