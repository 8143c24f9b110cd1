// Package hilbertcluster provides Hilbert-curve clustering of integer
// point sets.
//
// This file implements the fluent builder API for creating and
// configuring HilbertCluster instances. The builder is immutable -
// each method returns a new builder with the updated configuration.
package hilbertcluster

import (
	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/optimizer"
	"github.com/cohenw/hilbertcluster/resource"
)

// Optimize creates a new builder for points of the specified coordinate
// bit width.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents
// accidental state sharing.
//
// Example:
//
//	hc, err := hilbertcluster.Optimize(10).
//	    OutlierSize(5).
//	    NoiseSkipBy(10).
//	    MaxTrials(40).
//	    Seed(42).
//	    Build()
func Optimize(bitsPerDimension int) Builder {
	return Builder{
		bits:           bitsPerDimension,
		outlierSize:    cluster.DefaultEstimator.OutlierSize,
		noiseSkipBy:    cluster.DefaultEstimator.NoiseSkipBy,
		parallelTrials: optimizer.DefaultParallelTrials,
		maxIterations:  optimizer.DefaultMaxIterations,
		maxStall:       optimizer.DefaultMaxStall,
		poolSize:       1,
		seed:           optimizer.DefaultSeed,
	}
}

// Builder is an immutable fluent builder for creating HilbertCluster
// instances. Each method returns a new builder with the updated
// configuration.
type Builder struct {
	bits           int
	outlierSize    int
	noiseSkipBy    int
	parallelTrials int
	maxIterations  int
	maxStall       int
	poolSize       int
	seed           int64
	estimator      cluster.Estimator
	schedule       optimizer.Schedule
	resources      *resource.Controller
	logger         *Logger
	metrics        MetricsCollector
	compression    *Compression
}

// OutlierSize sets the cluster size at or below which a run of points
// counts as outliers rather than a cluster.
// Default: 5.
func (b Builder) OutlierSize(n int) Builder {
	b.outlierSize = n
	return b
}

// NoiseSkipBy sets the stride used when smoothing the gap distribution
// for the merge threshold.
// Default: 10.
func (b Builder) NoiseSkipBy(n int) Builder {
	b.noiseSkipBy = n
	return b
}

// MaxTrials sets the total trial budget. The round budget becomes
// ceil(n / parallelTrials), so set ParallelTrials first when combining
// the two.
func (b Builder) MaxTrials(n int) Builder {
	b.maxIterations = (n + b.parallelTrials - 1) / b.parallelTrials
	return b
}

// MaxIterations sets the round budget directly.
// Default: 10.
func (b Builder) MaxIterations(n int) Builder {
	b.maxIterations = n
	return b
}

// MaxStall sets the number of consecutive rounds without improvement
// after which the search stops early.
// Default: 3.
func (b Builder) MaxStall(n int) Builder {
	b.maxStall = n
	return b
}

// ParallelTrials sets the number of trials launched per round.
// Default: 4.
func (b Builder) ParallelTrials(n int) Builder {
	b.parallelTrials = n
	return b
}

// PoolSize sets how many of the best permutations the search retains.
// Default: 1 (single-best search).
func (b Builder) PoolSize(k int) Builder {
	b.poolSize = k
	return b
}

// Seed fixes the random seed for deterministic searches.
// Default: 1.
func (b Builder) Seed(seed int64) Builder {
	b.seed = seed
	return b
}

// Estimator replaces the default gap estimator.
func (b Builder) Estimator(e cluster.Estimator) Builder {
	b.estimator = e
	return b
}

// Schedule replaces the default halving mutation schedule.
func (b Builder) Schedule(s optimizer.Schedule) Builder {
	b.schedule = s
	return b
}

// Resources attaches a resource controller that gates concurrent index
// builds and snapshot IO.
func (b Builder) Resources(c *resource.Controller) Builder {
	b.resources = c
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.metrics = mc
	return b
}

// Compression selects the snapshot compression scheme.
// Default: CompressionZstd.
func (b Builder) Compression(c Compression) Builder {
	b.compression = &c
	return b
}

// Build creates the HilbertCluster instance.
func (b Builder) Build() (*HilbertCluster, error) {
	opts := []Option{
		WithOutlierSize(b.outlierSize),
		WithNoiseSkipBy(b.noiseSkipBy),
		WithParallelTrials(b.parallelTrials),
		WithMaxIterations(b.maxIterations),
		WithMaxStall(b.maxStall),
		WithPoolSize(b.poolSize),
		WithSeed(b.seed),
	}
	if b.estimator != nil {
		opts = append(opts, WithEstimator(b.estimator))
	}
	if b.schedule != nil {
		opts = append(opts, WithSchedule(b.schedule))
	}
	if b.resources != nil {
		opts = append(opts, WithResources(b.resources))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	if b.compression != nil {
		opts = append(opts, WithCompression(*b.compression))
	}

	return New(b.bits, opts...)
}

// MustBuild creates the HilbertCluster instance, panicking on error.
func (b Builder) MustBuild() *HilbertCluster {
	hc, err := b.Build()
	if err != nil {
		panic(err)
	}
	return hc
}
