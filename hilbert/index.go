package hilbert

import (
	"bytes"
	"sort"

	"github.com/cohenw/hilbertcluster/point"
)

// Index is a view over a point set in Hilbert curve order under a
// specific axis permutation. The underlying point slice is shared, not
// copied; it must stay read-only for the lifetime of the index.
type Index struct {
	perm   Permutation
	bits   int
	dims   int
	points []point.Point
	order  []int // order[i] = ordinal of the i-th point in curve order
}

// BuildIndex encodes every point under perm and sorts the set into
// curve order. The result is deterministic given its inputs: ties on
// identical keys keep the original ordinal order.
func BuildIndex(points []point.Point, perm Permutation, bits int) (*Index, error) {
	d, err := point.Validate(points, bits)
	if err != nil {
		return nil, err
	}
	if !perm.Valid() || perm.Degree() != d {
		return nil, &ErrInvalidPermutation{Degree: perm.Degree(), Expected: d}
	}

	enc, err := NewEncoder(perm, bits)
	if err != nil {
		return nil, err
	}

	keyLen := enc.KeyLen()
	flat := make([]byte, keyLen*len(points))
	axes := make([]uint32, d)
	keys := make([][]byte, len(points))
	for i, p := range points {
		keys[i] = enc.KeyInto(p, axes, flat[i*keyLen:(i+1)*keyLen])
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(keys[order[a]], keys[order[b]]) < 0
	})

	return &Index{
		perm:   enc.Permutation(),
		bits:   bits,
		dims:   d,
		points: points,
		order:  order,
	}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return len(ix.order) }

// Dimensions returns the shared dimensionality of the indexed points.
func (ix *Index) Dimensions() int { return ix.dims }

// Bits returns the coordinate bit width the index was built with.
func (ix *Index) Bits() int { return ix.bits }

// Permutation returns a copy of the axis permutation the index was
// built with.
func (ix *Index) Permutation() Permutation { return ix.perm.Clone() }

// At returns the i-th point in curve order.
func (ix *Index) At(i int) point.Point { return ix.points[ix.order[i]] }

// Ordinal returns the original position of the i-th point in curve
// order, for mapping curve positions back to the input set.
func (ix *Index) Ordinal(i int) int { return ix.order[i] }

// SortedPoints returns the points in curve order. The returned slice is
// freshly allocated; the points themselves are shared.
func (ix *Index) SortedPoints() []point.Point {
	out := make([]point.Point, len(ix.order))
	for i, ord := range ix.order {
		out[i] = ix.points[ord]
	}
	return out
}
