// Package hilbert implements Hilbert curve encoding of integer point
// sets under configurable axis permutations.
//
// The curve maps a d-dimensional point to a scalar position that
// preserves spatial locality well. Which permutation of the coordinate
// axes is applied before encoding changes how badly true clusters
// fragment along the curve; the optimizer package searches that space.
//
// Keys are byte strings rather than machine words so arbitrary
// d*bits widths sort correctly with bytes.Compare.
package hilbert
