// Package point defines the integer point model shared by the Hilbert
// encoder and the clustering layers.
//
// A point set is a slice of Points with a common dimensionality and a
// common coordinate bit width. Validation happens once per set so the
// hot paths (encoding, gap scanning) stay unchecked.
package point

import (
	"fmt"
	"slices"
)

// Point is a vector of non-negative integer coordinates.
type Point []uint32

// Dimensions returns the number of coordinates.
func (p Point) Dimensions() int { return len(p) }

// Clone returns an independent copy of p.
func (p Point) Clone() Point { return slices.Clone(p) }

// Equal reports whether p and q have identical coordinates.
func (p Point) Equal(q Point) bool { return slices.Equal(p, q) }

// SquaredDistance returns the squared Euclidean distance between a and b.
// Both points must share the same dimensionality; Validate enforces this
// for whole sets up front.
func SquaredDistance(a, b Point) uint64 {
	var sum uint64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += uint64(d * d)
	}
	return sum
}

// ErrDimensionMismatch indicates that a point does not match the
// dimensionality of its set.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	Ordinal  int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("point %d: dimension mismatch: expected %d, got %d", e.Ordinal, e.Expected, e.Actual)
}

// ErrCoordinateOverflow indicates a coordinate that does not fit the
// configured bit width.
type ErrCoordinateOverflow struct {
	Ordinal int
	Axis    int
	Value   uint32
	Bits    int
}

func (e *ErrCoordinateOverflow) Error() string {
	return fmt.Sprintf("point %d axis %d: coordinate %d exceeds %d bits", e.Ordinal, e.Axis, e.Value, e.Bits)
}

// ErrInvalidBits indicates an unsupported coordinate bit width.
type ErrInvalidBits struct {
	Bits int
}

func (e *ErrInvalidBits) Error() string {
	return fmt.Sprintf("invalid bits per dimension: %d (must be 1..32)", e.Bits)
}

// Validate checks that the set is non-empty, that every point shares the
// dimensionality of the first one and that every coordinate fits bits.
// It returns the shared dimensionality.
func Validate(points []Point, bits int) (int, error) {
	if bits < 1 || bits > 32 {
		return 0, &ErrInvalidBits{Bits: bits}
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("empty point set")
	}

	d := len(points[0])
	if d == 0 {
		return 0, &ErrDimensionMismatch{Expected: 1, Actual: 0, Ordinal: 0}
	}

	var maxCoord uint32
	if bits == 32 {
		maxCoord = ^uint32(0)
	} else {
		maxCoord = (uint32(1) << bits) - 1
	}

	for i, p := range points {
		if len(p) != d {
			return 0, &ErrDimensionMismatch{Expected: d, Actual: len(p), Ordinal: i}
		}
		for axis, c := range p {
			if c > maxCoord {
				return 0, &ErrCoordinateOverflow{Ordinal: i, Axis: axis, Value: c, Bits: bits}
			}
		}
	}

	return d, nil
}
