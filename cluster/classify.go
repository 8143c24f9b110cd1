package cluster

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/point"
)

// Partition is a materialized clustering of a point set. Cluster
// membership is kept as bitmaps over the ordinals of the original
// input slice, so downstream consumers can intersect, rank and merge
// clusters without touching the points themselves.
type Partition struct {
	clusters    []*roaring.Bitmap
	outliers    *roaring.Bitmap
	assignments []int
}

// Outlier is the assignment value of points not in any cluster.
const Outlier = -1

// Classify cuts the curve order of ix at every gap above threshold and
// materializes the resulting runs. Runs of size at or below outlierSize
// become outliers instead of clusters. Clusters are numbered in curve
// order starting at zero.
func Classify(ix *hilbert.Index, threshold uint64, outlierSize int) (*Partition, error) {
	n := ix.Len()
	if n < 2 {
		return nil, ErrTooFewPoints
	}

	p := &Partition{
		outliers:    roaring.New(),
		assignments: make([]int, n),
	}

	start := 0
	prev := ix.At(0)
	for i := 1; i <= n; i++ {
		if i < n {
			cur := ix.At(i)
			gap := point.SquaredDistance(prev, cur)
			prev = cur
			if gap <= threshold {
				continue
			}
		}
		p.addRun(ix, start, i, outlierSize)
		start = i
	}

	return p, nil
}

func (p *Partition) addRun(ix *hilbert.Index, start, end, outlierSize int) {
	if end-start <= outlierSize {
		for i := start; i < end; i++ {
			ord := ix.Ordinal(i)
			p.outliers.Add(uint32(ord))
			p.assignments[ord] = Outlier
		}
		return
	}

	id := len(p.clusters)
	bm := roaring.New()
	for i := start; i < end; i++ {
		ord := ix.Ordinal(i)
		bm.Add(uint32(ord))
		p.assignments[ord] = id
	}
	p.clusters = append(p.clusters, bm)
}

// Len returns the number of clusters.
func (p *Partition) Len() int { return len(p.clusters) }

// Cluster returns the membership bitmap of cluster id. The bitmap is
// owned by the partition; callers must not mutate it.
func (p *Partition) Cluster(id int) *roaring.Bitmap { return p.clusters[id] }

// Clusters returns all cluster bitmaps in curve order.
func (p *Partition) Clusters() []*roaring.Bitmap { return p.clusters }

// Outliers returns the bitmap of points assigned to no cluster.
func (p *Partition) Outliers() *roaring.Bitmap { return p.outliers }

// Assignments returns, for each input ordinal, its cluster id or
// Outlier. The slice is owned by the partition.
func (p *Partition) Assignments() []int { return p.assignments }
