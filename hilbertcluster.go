package hilbertcluster

import (
	"context"
	"time"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/codec"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/optimizer"
	"github.com/cohenw/hilbertcluster/point"
	"github.com/cohenw/hilbertcluster/randx"
	"github.com/cohenw/hilbertcluster/resource"
)

// HilbertCluster ties the permutation optimizer and the cluster
// materializer together behind one handle. Construct it with New or
// the fluent builder in builder.go.
//
// A HilbertCluster is safe for concurrent use; concurrent searches
// share the resource controller but draw from the same random source,
// so run them with separate instances when reproducibility matters.
type HilbertCluster struct {
	bits        int
	outlierSize int
	poolSize    int
	searcher    *optimizer.Searcher
	resources   *resource.Controller
	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression Compression
}

// New creates a HilbertCluster for points of the given coordinate bit
// width.
func New(bitsPerDimension int, optFns ...Option) (*HilbertCluster, error) {
	o := applyOptions(optFns)

	estimator := o.estimator
	if estimator == nil {
		estimator = cluster.GapEstimator{
			OutlierSize: o.outlierSize,
			NoiseSkipBy: o.noiseSkipBy,
		}
	}

	searcher, err := optimizer.New(func(so *optimizer.Options) {
		so.BitsPerDimension = bitsPerDimension
		so.ParallelTrials = o.parallelTrials
		so.MaxIterations = o.maxIterations
		so.MaxStall = o.maxStall
		so.Estimator = estimator
		so.Schedule = o.schedule
		so.Rand = randx.New(o.seed)
		so.Resources = o.resources
		so.Logger = o.logger.Logger
		so.Metrics = o.metrics
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &HilbertCluster{
		bits:        bitsPerDimension,
		outlierSize: o.outlierSize,
		poolSize:    o.poolSize,
		searcher:    searcher,
		resources:   o.resources,
		logger:      o.logger,
		metrics:     o.metrics,
		codec:       o.codec,
		compression: o.compression,
	}, nil
}

// BitsPerDimension returns the coordinate bit width the instance was
// created for.
func (hc *HilbertCluster) BitsPerDimension() int { return hc.bits }

// FindBestPermutation searches for the axis permutation that minimizes
// cluster fragmentation and returns its scored result. A nil start
// means the identity permutation.
func (hc *HilbertCluster) FindBestPermutation(ctx context.Context, points []point.Point, start hilbert.Permutation) (optimizer.Result, error) {
	results, err := hc.FindBestPermutations(ctx, points, 1, start)
	if err != nil {
		return optimizer.Result{}, err
	}
	return results[0], nil
}

// FindBestPermutations is FindBestPermutation with a pool of k results,
// returned best first. k <= 0 means the configured pool size.
func (hc *HilbertCluster) FindBestPermutations(ctx context.Context, points []point.Point, k int, start hilbert.Permutation) ([]optimizer.Result, error) {
	if k <= 0 {
		k = hc.poolSize
	}
	begin := time.Now()
	results, err := hc.searcher.SearchMany(ctx, points, k, start)
	hc.metrics.RecordSearch(time.Since(begin), err)
	if err != nil {
		hc.logger.LogSearch(ctx, len(points), 0, time.Since(begin), err)
		return nil, translateError(err)
	}
	hc.logger.LogSearch(ctx, len(points), results[0].EstimatedClusterCount, time.Since(begin), nil)
	return results, nil
}

// Cluster runs the full pipeline: optimize the permutation, then cut
// the winning curve order into a concrete partition. The widest
// in-cluster gap the estimator accepted becomes the cut threshold, so
// the partition reproduces the estimate's cluster boundaries.
func (hc *HilbertCluster) Cluster(ctx context.Context, points []point.Point) (*cluster.Partition, optimizer.Result, error) {
	best, err := hc.FindBestPermutation(ctx, points, nil)
	if err != nil {
		return nil, optimizer.Result{}, err
	}

	partition, err := cluster.Classify(best.Index, best.MergeSquareDistance, hc.outlierSize)
	if err != nil {
		hc.logger.LogCluster(ctx, 0, 0, err)
		return nil, optimizer.Result{}, translateError(err)
	}

	hc.logger.LogCluster(ctx, partition.Len(), int(partition.Outliers().GetCardinality()), nil)
	return partition, best, nil
}
