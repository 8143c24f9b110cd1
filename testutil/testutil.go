package testutil

import (
	"math"
	"math/rand"

	"github.com/cohenw/hilbertcluster/point"
)

// GaussianConfig describes a synthetic clustered point set.
type GaussianConfig struct {
	// Clusters is the number of ground-truth clusters.
	Clusters int
	// Dimensions is the point dimensionality.
	Dimensions int
	// MaxCoordinate is the largest coordinate value, e.g. 1023 for
	// 10-bit coordinates.
	MaxCoordinate uint32
	// MinSize and MaxSize bound the cluster sizes (inclusive).
	MinSize, MaxSize int
	// StdDev is the per-axis standard deviation around each center.
	StdDev float64
}

// GaussianClusters generates integer points in Gaussian blobs around
// uniformly placed centers, together with each point's ground-truth
// cluster label. Output is deterministic for a given rng state.
//
// Centers are kept away from the coordinate boundary by one standard
// deviation so clipping does not flatten blob edges into the walls.
func GaussianClusters(rng *rand.Rand, cfg GaussianConfig) ([]point.Point, []int) {
	margin := cfg.StdDev
	span := float64(cfg.MaxCoordinate) - 2*margin
	if span < 1 {
		span = float64(cfg.MaxCoordinate)
		margin = 0
	}

	var points []point.Point
	var labels []int
	for c := 0; c < cfg.Clusters; c++ {
		center := make([]float64, cfg.Dimensions)
		for d := range center {
			center[d] = margin + rng.Float64()*span
		}

		size := cfg.MinSize
		if cfg.MaxSize > cfg.MinSize {
			size += rng.Intn(cfg.MaxSize - cfg.MinSize + 1)
		}

		for i := 0; i < size; i++ {
			p := make(point.Point, cfg.Dimensions)
			for d := range p {
				v := center[d] + rng.NormFloat64()*cfg.StdDev
				p[d] = clip(v, cfg.MaxCoordinate)
			}
			points = append(points, p)
			labels = append(labels, c)
		}
	}

	// Shuffle so curve order cannot lean on generation order.
	rng.Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
		labels[i], labels[j] = labels[j], labels[i]
	})

	return points, labels
}

func clip(v float64, maxCoord uint32) uint32 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > float64(maxCoord) {
		return maxCoord
	}
	return uint32(r)
}

// BCubed computes the BCubed F-score of a predicted partition against
// ground-truth labels. Points predicted as outliers (negative
// assignment) are treated as singleton clusters.
func BCubed(truth, predicted []int) float64 {
	n := len(truth)
	if n == 0 || n != len(predicted) {
		return 0
	}

	// Remap outliers to unique singleton ids.
	pred := make([]int, n)
	next := 0
	for _, p := range predicted {
		if p >= next {
			next = p + 1
		}
	}
	for i, p := range predicted {
		if p < 0 {
			pred[i] = next
			next++
		} else {
			pred[i] = p
		}
	}

	type pair struct{ p, t int }
	predSize := make(map[int]int)
	truthSize := make(map[int]int)
	overlap := make(map[pair]int)
	for i := 0; i < n; i++ {
		predSize[pred[i]]++
		truthSize[truth[i]]++
		overlap[pair{pred[i], truth[i]}]++
	}

	var precision, recall float64
	for pt, o := range overlap {
		// Each of the o points in this overlap contributes o/|pred| to
		// precision and o/|truth| to recall.
		precision += float64(o) * float64(o) / float64(predSize[pt.p])
		recall += float64(o) * float64(o) / float64(truthSize[pt.t])
	}
	precision /= float64(n)
	recall /= float64(n)

	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
