package optimizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/internal/queue"
	"github.com/cohenw/hilbertcluster/point"
	"github.com/cohenw/hilbertcluster/randx"
	"github.com/cohenw/hilbertcluster/resource"
)

const (
	// DefaultParallelTrials is the number of trials launched per round.
	DefaultParallelTrials = 4
	// DefaultMaxIterations is the round budget.
	DefaultMaxIterations = 10
	// DefaultMaxStall is the number of consecutive fruitless rounds
	// after which the search stops early.
	DefaultMaxStall = 3
	// DefaultSeed seeds the random source when none is provided.
	DefaultSeed = 1
	// MinPoints is the smallest point set the search accepts.
	MinPoints = 10
)

// ErrInvalidPoolSize is returned when a non-positive pool capacity is
// requested.
var ErrInvalidPoolSize = errors.New("pool size must be positive")

// ErrTooFewPoints indicates a point set below the search minimum.
type ErrTooFewPoints struct {
	Points int
}

func (e *ErrTooFewPoints) Error() string {
	return fmt.Sprintf("too few points: %d (minimum %d)", e.Points, MinPoints)
}

// Collector receives operational metrics from the search loop.
type Collector interface {
	// RecordTrial is called after each trial, failed or not.
	RecordTrial(duration time.Duration, err error)
	// RecordRound is called after each round with whether any trial in
	// it improved on the best result so far.
	RecordRound(improved bool, duration time.Duration)
}

type noopCollector struct{}

func (noopCollector) RecordTrial(time.Duration, error) {}
func (noopCollector) RecordRound(bool, time.Duration)  {}

// Options configures a Searcher.
type Options struct {
	// BitsPerDimension is the coordinate bit width of the input points.
	BitsPerDimension int
	// ParallelTrials is the number of trials launched per round.
	ParallelTrials int
	// MaxIterations bounds the number of rounds. Zero means the seed
	// result is returned unimproved.
	MaxIterations int
	// MaxStall is the number of consecutive rounds without improvement
	// that stops the search early.
	MaxStall int
	// Estimator scores each trial's curve order. Defaults to
	// cluster.DefaultEstimator.
	Estimator cluster.Estimator
	// Schedule derives candidate permutations. Defaults to
	// HalvingSchedule.
	Schedule Schedule
	// Rand is the shared random source for scrambling. Defaults to a
	// source seeded with DefaultSeed; pass your own for reproducible
	// independent runs.
	Rand *randx.Source
	// Resources optionally gates concurrent index builds and is shared
	// with other work in the process. Nil means no gating.
	Resources *resource.Controller
	// Logger receives structured search progress. Nil discards.
	Logger *slog.Logger
	// Metrics receives trial and round metrics. Nil discards.
	Metrics Collector
}

// DefaultOptions are the options New starts from.
var DefaultOptions = Options{
	BitsPerDimension: 10,
	ParallelTrials:   DefaultParallelTrials,
	MaxIterations:    DefaultMaxIterations,
	MaxStall:         DefaultMaxStall,
}

// Searcher runs the optimal index search over axis permutations.
type Searcher struct {
	opts Options
}

// New creates a Searcher.
func New(optFns ...func(o *Options)) (*Searcher, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BitsPerDimension < 1 || opts.BitsPerDimension > 32 {
		return nil, &point.ErrInvalidBits{Bits: opts.BitsPerDimension}
	}
	if opts.ParallelTrials < 1 {
		opts.ParallelTrials = 1
	}
	if opts.MaxIterations < 0 {
		opts.MaxIterations = 0
	}
	if opts.MaxStall < 1 {
		opts.MaxStall = 1
	}
	if opts.Estimator == nil {
		opts.Estimator = cluster.DefaultEstimator
	}
	if opts.Schedule == nil {
		opts.Schedule = HalvingSchedule{}
	}
	if opts.Rand == nil {
		opts.Rand = randx.New(DefaultSeed)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = noopCollector{}
	}

	return &Searcher{opts: opts}, nil
}

// Options returns a copy of the searcher's resolved options.
func (s *Searcher) Options() Options { return s.opts }

// Search returns the single best result found. It is SearchMany with a
// pool of one.
func (s *Searcher) Search(ctx context.Context, points []point.Point, start hilbert.Permutation) (Result, error) {
	results, err := s.SearchMany(ctx, points, 1, start)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// SearchMany returns up to k results ordered best first. A nil start
// permutation means the identity permutation over the points'
// dimensionality.
//
// The returned best-so-far sequence is monotonically non-worsening and,
// for a fixed seed on the Rand option, the output is identical across
// runs: candidates are drawn from the shared source in trial order
// before each round fans out, and results are admitted in trial order
// at the round barrier.
func (s *Searcher) SearchMany(ctx context.Context, points []point.Point, k int, start hilbert.Permutation) ([]Result, error) {
	if k < 1 {
		return nil, ErrInvalidPoolSize
	}
	if len(points) < MinPoints {
		return nil, &ErrTooFewPoints{Points: len(points)}
	}

	d, err := point.Validate(points, s.opts.BitsPerDimension)
	if err != nil {
		return nil, err
	}
	if start == nil {
		start = hilbert.Identity(d)
	} else if !start.Valid() || start.Degree() != d {
		return nil, &hilbert.ErrInvalidPermutation{Degree: start.Degree(), Expected: d}
	}

	// Seed: the starting permutation is scored like any trial, but its
	// failure is an input problem and surfaces to the caller.
	best, err := s.trial(ctx, points, start)
	if err != nil {
		return nil, err
	}

	pool := queue.NewBounded[Result](k, worseResult)
	pool.AddRemove(best)
	seq := 0

	s.opts.Logger.Debug("search seeded",
		"points", len(points),
		"dimensions", d,
		"initial_count", best.EstimatedClusterCount,
	)

	converged := false
	stall := 0
	for iter := 0; iter < s.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		roundStart := time.Now()

		// All trials of a round mutate from the same base; improvements
		// inside the round do not re-seed it. Candidates are drawn here,
		// sequentially, so the shared source is consumed in trial order.
		base := best.Permutation
		trials := s.opts.ParallelTrials
		candidates := make([]hilbert.Permutation, trials)
		for t := range candidates {
			candidates[t] = s.opts.Schedule.Next(s.opts.Rand, base, iter)
		}

		results := make([]Result, trials)
		errs := make([]error, trials)
		var g errgroup.Group
		for t := 0; t < trials; t++ {
			g.Go(func() error {
				results[t], errs[t] = s.trial(ctx, points, candidates[t])
				return nil
			})
		}
		_ = g.Wait()

		improved := 0
		for t := range results {
			if errs[t] != nil {
				s.opts.Logger.Warn("trial failed",
					"iteration", iter,
					"trial", t,
					"error", errs[t],
				)
				continue
			}
			seq++
			r := results[t]
			r.seq = seq
			pool.AddRemove(r)
			if r.BetterThan(best) {
				best = r
				improved++
			}
		}

		if improved == 0 {
			stall++
		} else {
			stall = 0
		}
		s.opts.Metrics.RecordRound(improved > 0, time.Since(roundStart))
		s.opts.Logger.Debug("round complete",
			"iteration", iter,
			"improved", improved,
			"best_count", best.EstimatedClusterCount,
			"stall", stall,
		)

		if stall >= s.opts.MaxStall {
			converged = true
			break
		}
	}

	drained := pool.RemoveAll()
	slices.Reverse(drained)

	s.opts.Logger.Info("search finished",
		"converged", converged,
		"best_count", drained[0].EstimatedClusterCount,
		"results", len(drained),
	)
	return drained, nil
}

// trial builds and scores one candidate. Failures abort only this
// trial; the loop treats them as non-improving.
func (s *Searcher) trial(ctx context.Context, points []point.Point, perm hilbert.Permutation) (Result, error) {
	start := time.Now()

	if c := s.opts.Resources; c != nil {
		if err := c.AcquireBuild(ctx); err != nil {
			s.opts.Metrics.RecordTrial(time.Since(start), err)
			return Result{}, err
		}
		defer c.ReleaseBuild()
	}

	ix, err := hilbert.BuildIndex(points, perm, s.opts.BitsPerDimension)
	if err != nil {
		s.opts.Metrics.RecordTrial(time.Since(start), err)
		return Result{}, err
	}

	est, err := s.opts.Estimator.Estimate(ix)
	s.opts.Metrics.RecordTrial(time.Since(start), err)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Permutation:           perm,
		Index:                 ix,
		EstimatedClusterCount: est.Count,
		MergeSquareDistance:   est.MergeSquareDistance,
	}, nil
}
