// Package hilbertcluster clusters high-dimensional integer point sets
// by linearizing them along a Hilbert space-filling curve.
//
// Nearby points tend to land near one another on the curve, so clusters
// can be recovered by scanning the curve order and cutting it where
// consecutive points are too far apart. How well that works depends
// heavily on which permutation of the coordinate axes the curve is
// built with; the library's core is a parallel search over permutations
// that minimizes a cluster-fragmentation score.
//
// Quick start:
//
//	hc, err := hilbertcluster.Optimize(10).
//	    OutlierSize(5).
//	    MaxTrials(40).
//	    Seed(42).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	partition, best, err := hc.Cluster(ctx, points)
//
// The optimizer, estimator, curve encoder and classifier are exposed as
// separate packages for callers that need only part of the pipeline.
package hilbertcluster
