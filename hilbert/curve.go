package hilbert

import (
	"github.com/cohenw/hilbertcluster/point"
)

// Encoder maps points to Hilbert curve keys under a fixed axis
// permutation. Keys are big-endian bit-interleaved byte strings that
// sort in curve order with bytes.Compare, so key width is not limited
// to a machine word (d=50 at 10 bits is a 500-bit key).
//
// The transform is Skilling's transpose algorithm: axes are folded into
// the transposed Hilbert representation in place, then the transposed
// words are interleaved most-significant bit first.
type Encoder struct {
	perm Permutation
	bits int
	dims int
}

// NewEncoder creates an Encoder for the given permutation and
// coordinate bit width.
func NewEncoder(perm Permutation, bits int) (*Encoder, error) {
	if bits < 1 || bits > 32 {
		return nil, &point.ErrInvalidBits{Bits: bits}
	}
	if !perm.Valid() {
		return nil, &ErrInvalidPermutation{Degree: perm.Degree()}
	}
	return &Encoder{
		perm: perm.Clone(),
		bits: bits,
		dims: perm.Degree(),
	}, nil
}

// Bits returns the coordinate bit width.
func (e *Encoder) Bits() int { return e.bits }

// Dimensions returns the number of axes.
func (e *Encoder) Dimensions() int { return e.dims }

// Permutation returns a copy of the encoder's axis permutation.
func (e *Encoder) Permutation() Permutation { return e.perm.Clone() }

// KeyLen returns the length in bytes of an encoded key.
func (e *Encoder) KeyLen() int {
	return (e.dims*e.bits + 7) / 8
}

// Key returns the Hilbert key of p.
func (e *Encoder) Key(p point.Point) []byte {
	return e.KeyInto(p, make([]uint32, e.dims), make([]byte, e.KeyLen()))
}

// KeyInto encodes p using caller-provided scratch space. axes must have
// length Dimensions and key length KeyLen; key is zeroed, filled and
// returned.
func (e *Encoder) KeyInto(p point.Point, axes []uint32, key []byte) []byte {
	e.perm.Apply(p, axes)
	axesToTranspose(axes, e.bits)
	for i := range key {
		key[i] = 0
	}
	interleave(axes, e.bits, key)
	return key
}

// Decode recovers the point whose Hilbert key is key. It inverts the
// interleaving, the transpose transform and the axis permutation.
func (e *Encoder) Decode(key []byte) point.Point {
	axes := make([]uint32, e.dims)
	deinterleave(key, e.bits, axes)
	transposeToAxes(axes, e.bits)

	p := make(point.Point, e.dims)
	for i, j := range e.perm {
		p[j] = axes[i]
	}
	return p
}

// axesToTranspose converts coordinate axes to the transposed Hilbert
// representation in place (Skilling, AIP Conf. Proc. 707, 2004).
func axesToTranspose(x []uint32, bits int) {
	n := len(x)
	m := uint32(1) << (bits - 1)

	// Inverse undo
	for q := m; q > 1; q >>= 1 {
		p := q - 1
		for i := 0; i < n; i++ {
			if x[i]&q != 0 {
				x[0] ^= p
			} else {
				t := (x[0] ^ x[i]) & p
				x[0] ^= t
				x[i] ^= t
			}
		}
	}

	// Gray encode
	for i := 1; i < n; i++ {
		x[i] ^= x[i-1]
	}
	var t uint32
	for q := m; q > 1; q >>= 1 {
		if x[n-1]&q != 0 {
			t ^= q - 1
		}
	}
	for i := 0; i < n; i++ {
		x[i] ^= t
	}
}

// transposeToAxes is the inverse of axesToTranspose.
func transposeToAxes(x []uint32, bits int) {
	n := len(x)
	m := uint32(2) << (bits - 1)

	// Gray decode
	t := x[n-1] >> 1
	for i := n - 1; i > 0; i-- {
		x[i] ^= x[i-1]
	}
	x[0] ^= t

	// Undo excess work
	for q := uint32(2); q != m; q <<= 1 {
		p := q - 1
		for i := n - 1; i >= 0; i-- {
			if x[i]&q != 0 {
				x[0] ^= p
			} else {
				t := (x[0] ^ x[i]) & p
				x[0] ^= t
				x[i] ^= t
			}
		}
	}
}

// interleave packs the transposed words into key, most significant bit
// of the curve position first: bit b of axis i lands before bit b of
// axis i+1, which lands before bit b-1 of axis 0.
func interleave(x []uint32, bits int, key []byte) {
	pos := 0
	for b := bits - 1; b >= 0; b-- {
		for i := 0; i < len(x); i++ {
			if x[i]>>uint(b)&1 != 0 {
				key[pos>>3] |= 1 << uint(7-pos&7)
			}
			pos++
		}
	}
}

// deinterleave is the inverse of interleave.
func deinterleave(key []byte, bits int, x []uint32) {
	for i := range x {
		x[i] = 0
	}
	pos := 0
	for b := bits - 1; b >= 0; b-- {
		for i := 0; i < len(x); i++ {
			if key[pos>>3]>>uint(7-pos&7)&1 != 0 {
				x[i] |= 1 << uint(b)
			}
			pos++
		}
	}
}
