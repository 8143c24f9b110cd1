package optimizer

import (
	"github.com/cohenw/hilbertcluster/hilbert"
)

// Result is one scored permutation. It is immutable once published by a
// trial; the index it carries stays valid as long as the result is
// retained.
type Result struct {
	// Permutation is the axis permutation the index was built with.
	Permutation hilbert.Permutation
	// Index is the curve order built under Permutation.
	Index *hilbert.Index
	// EstimatedClusterCount is the score; lower is better.
	EstimatedClusterCount int
	// MergeSquareDistance is the widest in-cluster gap taken while
	// estimating, carried for downstream cluster materialization.
	MergeSquareDistance uint64

	// seq orders results by admission so that equal scores resolve the
	// same way on every run with the same seed.
	seq int
}

// BetterThan reports whether r scores strictly better than o.
func (r Result) BetterThan(o Result) bool {
	return r.EstimatedClusterCount < o.EstimatedClusterCount
}

// worseResult is the total eviction order of the result pool: higher
// counts are worse, and among equal counts the later admission is
// worse. Totality keeps pool contents deterministic under a fixed seed.
func worseResult(a, b Result) bool {
	if a.EstimatedClusterCount != b.EstimatedClusterCount {
		return a.EstimatedClusterCount > b.EstimatedClusterCount
	}
	return a.seq > b.seq
}
