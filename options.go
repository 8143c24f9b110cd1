package hilbertcluster

import (
	"log/slog"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/codec"
	"github.com/cohenw/hilbertcluster/optimizer"
	"github.com/cohenw/hilbertcluster/resource"
)

type options struct {
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
	codec          codec.Codec
	compression    Compression
}

// Option configures HilbertCluster constructor behavior.
//
// Options exist to avoid exploding the API surface; the fluent builder
// in builder.go covers the same ground for callers that prefer it.
type Option func(*options)

// WithOutlierSize sets the cluster size at or below which a run of
// points counts as outliers rather than a cluster.
func WithOutlierSize(n int) Option {
	return func(o *options) {
		o.outlierSize = n
	}
}

// WithNoiseSkipBy sets the stride used when smoothing the gap
// distribution for the merge threshold. Larger values damp single-point
// noise spikes harder.
func WithNoiseSkipBy(n int) Option {
	return func(o *options) {
		o.noiseSkipBy = n
	}
}

// WithParallelTrials sets the number of trials launched per optimizer
// round.
func WithParallelTrials(n int) Option {
	return func(o *options) {
		o.parallelTrials = n
	}
}

// WithMaxIterations sets the optimizer round budget.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithMaxStall sets the number of consecutive rounds without
// improvement after which the search stops early.
func WithMaxStall(n int) Option {
	return func(o *options) {
		o.maxStall = n
	}
}

// WithPoolSize sets how many of the best permutations the search
// retains. 1 means single-best search.
func WithPoolSize(k int) Option {
	return func(o *options) {
		o.poolSize = k
	}
}

// WithSeed fixes the random seed. Two runs with the same seed and
// inputs produce identical output.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithEstimator replaces the default gap estimator used to score curve
// orders.
func WithEstimator(e cluster.Estimator) Option {
	return func(o *options) {
		o.estimator = e
	}
}

// WithSchedule replaces the default halving mutation schedule.
func WithSchedule(s optimizer.Schedule) Option {
	return func(o *options) {
		o.schedule = s
	}
}

// WithResources attaches a resource controller that gates concurrent
// index builds and snapshot IO.
func WithResources(c *resource.Controller) Option {
	return func(o *options) {
		o.resources = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithCodec configures the codec used for snapshot payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression selects the snapshot compression scheme.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		outlierSize:    cluster.DefaultEstimator.OutlierSize,
		noiseSkipBy:    cluster.DefaultEstimator.NoiseSkipBy,
		parallelTrials: optimizer.DefaultParallelTrials,
		maxIterations:  optimizer.DefaultMaxIterations,
		maxStall:       optimizer.DefaultMaxStall,
		poolSize:       1,
		seed:           optimizer.DefaultSeed,
		metrics:        NoopMetricsCollector{},
		logger:         NoopLogger(),
		codec:          codec.Default,
		compression:    CompressionZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	return o
}
