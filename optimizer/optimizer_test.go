package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/point"
	"github.com/cohenw/hilbertcluster/randx"
	"github.com/cohenw/hilbertcluster/testutil"
)

func clusteredPoints(t *testing.T, seed int64) []point.Point {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	points, _ := testutil.GaussianClusters(rng, testutil.GaussianConfig{
		Clusters:      4,
		Dimensions:    8,
		MaxCoordinate: 1023,
		MinSize:       20,
		MaxSize:       30,
		StdDev:        4,
	})
	return points
}

// countingEstimator wraps an Estimator and counts calls. failEvery > 0
// fails every failEvery-th call; failAfter > 0 fails every call past
// the failAfter-th.
type countingEstimator struct {
	inner     cluster.Estimator
	calls     atomic.Int64
	failEvery int64
	failAfter int64
}

var errScripted = errors.New("scripted estimator failure")

func (e *countingEstimator) Estimate(ix *hilbert.Index) (cluster.Estimate, error) {
	n := e.calls.Add(1)
	if e.failEvery > 0 && n%e.failEvery == 0 {
		return cluster.Estimate{}, errScripted
	}
	if e.failAfter > 0 && n > e.failAfter {
		return cluster.Estimate{}, errScripted
	}
	return e.inner.Estimate(ix)
}

// constantEstimator never improves, forcing a stall.
type constantEstimator struct{}

func (constantEstimator) Estimate(*hilbert.Index) (cluster.Estimate, error) {
	return cluster.Estimate{Count: 42, MergeSquareDistance: 7}, nil
}

// recordingSchedule remembers the base permutation of every call.
type recordingSchedule struct {
	mu    sync.Mutex
	bases map[int][]hilbert.Permutation
}

func (s *recordingSchedule) Next(rng *randx.Source, prev hilbert.Permutation, iteration int) hilbert.Permutation {
	s.mu.Lock()
	if s.bases == nil {
		s.bases = make(map[int][]hilbert.Permutation)
	}
	s.bases[iteration] = append(s.bases[iteration], prev.Clone())
	s.mu.Unlock()
	return HalvingSchedule{}.Next(rng, prev, iteration)
}

// roundCollector counts rounds and trials.
type roundCollector struct {
	trials    atomic.Int64
	trialErrs atomic.Int64
	rounds    atomic.Int64
	improved  atomic.Int64
}

func (c *roundCollector) RecordTrial(_ time.Duration, err error) {
	c.trials.Add(1)
	if err != nil {
		c.trialErrs.Add(1)
	}
}

func (c *roundCollector) RecordRound(improved bool, _ time.Duration) {
	c.rounds.Add(1)
	if improved {
		c.improved.Add(1)
	}
}

func newSearcher(t *testing.T, optFns ...func(o *Options)) *Searcher {
	t.Helper()
	s, err := New(optFns...)
	require.NoError(t, err)
	return s
}

func TestSearch_TooFewPoints(t *testing.T) {
	est := &countingEstimator{inner: cluster.DefaultEstimator}
	s := newSearcher(t, func(o *Options) { o.Estimator = est })

	points := clusteredPoints(t, 1)[:9]
	_, err := s.Search(context.Background(), points, nil)

	var tfp *ErrTooFewPoints
	require.ErrorAs(t, err, &tfp)
	assert.Equal(t, 9, tfp.Points)

	// Rejected before any index was built or scored.
	assert.Equal(t, int64(0), est.calls.Load())
}

func TestSearch_MinimumAccepted(t *testing.T) {
	s := newSearcher(t, func(o *Options) { o.MaxIterations = 1 })

	points := clusteredPoints(t, 2)[:10]
	res, err := s.Search(context.Background(), points, nil)
	require.NoError(t, err)
	assert.True(t, res.Permutation.Valid())
}

func TestSearchMany_InvalidPoolSize(t *testing.T) {
	s := newSearcher(t)
	_, err := s.SearchMany(context.Background(), clusteredPoints(t, 3), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestSearch_InvalidStartPermutation(t *testing.T) {
	s := newSearcher(t)
	points := clusteredPoints(t, 4)

	_, err := s.Search(context.Background(), points, hilbert.Identity(3))
	var ip *hilbert.ErrInvalidPermutation
	assert.ErrorAs(t, err, &ip)

	_, err = s.Search(context.Background(), points, hilbert.Permutation{0, 0, 1, 2, 3, 4, 5, 6})
	assert.ErrorAs(t, err, &ip)
}

func TestSearch_ZeroIterationsReturnsSeed(t *testing.T) {
	s := newSearcher(t, func(o *Options) { o.MaxIterations = 0 })
	points := clusteredPoints(t, 5)

	results, err := s.SearchMany(context.Background(), points, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hilbert.Identity(8), results[0].Permutation)
}

func TestSearch_BestNeverWorseThanSeed(t *testing.T) {
	points := clusteredPoints(t, 6)

	seedIx, err := hilbert.BuildIndex(points, hilbert.Identity(8), 10)
	require.NoError(t, err)
	seedEst, err := cluster.DefaultEstimator.Estimate(seedIx)
	require.NoError(t, err)

	s := newSearcher(t, func(o *Options) { o.Rand = randx.New(9) })
	best, err := s.Search(context.Background(), points, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, best.EstimatedClusterCount, seedEst.Count)
	assert.NotNil(t, best.Index)
	assert.True(t, best.Permutation.Valid())
}

func TestSearchMany_SortedAndBounded(t *testing.T) {
	s := newSearcher(t, func(o *Options) { o.Rand = randx.New(10) })
	points := clusteredPoints(t, 7)

	results, err := s.SearchMany(context.Background(), points, 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].EstimatedClusterCount, results[i].EstimatedClusterCount)
	}
	for _, r := range results {
		assert.True(t, r.Permutation.Valid())
		assert.NotNil(t, r.Index)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	points := clusteredPoints(t, 8)

	run := func() []Result {
		s := newSearcher(t, func(o *Options) { o.Rand = randx.New(1234) })
		results, err := s.SearchMany(context.Background(), points, 4, nil)
		require.NoError(t, err)
		return results
	}

	a := run()
	b := run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Permutation, b[i].Permutation)
		assert.Equal(t, a[i].EstimatedClusterCount, b[i].EstimatedClusterCount)
		assert.Equal(t, a[i].MergeSquareDistance, b[i].MergeSquareDistance)
	}
}

func TestSearch_EarlyStopAfterStall(t *testing.T) {
	mc := &roundCollector{}
	s := newSearcher(t, func(o *Options) {
		o.Estimator = constantEstimator{}
		o.MaxIterations = 10
		o.MaxStall = 3
		o.Metrics = mc
	})

	res, err := s.Search(context.Background(), clusteredPoints(t, 11), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, res.EstimatedClusterCount)

	// A constant score never improves: exactly MaxStall rounds ran.
	assert.Equal(t, int64(3), mc.rounds.Load())
	assert.Equal(t, int64(0), mc.improved.Load())
	// Seed trial plus three full rounds.
	assert.Equal(t, int64(1+3*DefaultParallelTrials), mc.trials.Load())
}

func TestSearch_ExhaustsIterationBudget(t *testing.T) {
	mc := &roundCollector{}
	s := newSearcher(t, func(o *Options) {
		o.Estimator = constantEstimator{}
		o.MaxIterations = 2
		o.MaxStall = 5
		o.Metrics = mc
	})

	_, err := s.Search(context.Background(), clusteredPoints(t, 12), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mc.rounds.Load())
}

func TestSearch_RoundBaseStability(t *testing.T) {
	sched := &recordingSchedule{}
	s := newSearcher(t, func(o *Options) {
		o.Schedule = sched
		o.MaxIterations = 4
		o.Rand = randx.New(21)
	})

	_, err := s.Search(context.Background(), clusteredPoints(t, 13), nil)
	require.NoError(t, err)

	for iter, bases := range sched.bases {
		require.NotEmpty(t, bases)
		for _, b := range bases {
			assert.Equal(t, bases[0], b, "iteration %d mixed bases", iter)
		}
	}
}

func TestSearch_TrialFailuresAbsorbed(t *testing.T) {
	// Every fourth estimate fails; the search must still finish with a
	// valid best and count the failures as non-improving trials.
	est := &countingEstimator{inner: cluster.DefaultEstimator, failEvery: 4}
	mc := &roundCollector{}
	s := newSearcher(t, func(o *Options) {
		o.Estimator = est
		o.Metrics = mc
		o.Rand = randx.New(31)
	})

	best, err := s.Search(context.Background(), clusteredPoints(t, 14), nil)
	require.NoError(t, err)
	assert.True(t, best.Permutation.Valid())
	assert.Greater(t, mc.trialErrs.Load(), int64(0))
}

func TestSearch_AllTrialsFailingStalls(t *testing.T) {
	// The seed succeeds, every later estimate fails: the search degrades
	// to the seed result after MaxStall fruitless rounds.
	est := &countingEstimator{inner: cluster.DefaultEstimator, failAfter: 1}
	mc := &roundCollector{}
	s := newSearcher(t, func(o *Options) {
		o.Estimator = est
		o.MaxStall = 2
		o.Metrics = mc
	})

	best, err := s.Search(context.Background(), clusteredPoints(t, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, hilbert.Identity(8), best.Permutation)
	assert.Equal(t, int64(2), mc.rounds.Load())
}

func TestSearch_SerialTrials(t *testing.T) {
	points := clusteredPoints(t, 16)

	run := func(parallel int) []Result {
		s := newSearcher(t, func(o *Options) {
			o.ParallelTrials = parallel
			o.Rand = randx.New(77)
		})
		results, err := s.SearchMany(context.Background(), points, 2, nil)
		require.NoError(t, err)
		return results
	}

	// One worker still works; determinism holds per configuration.
	a := run(1)
	b := run(1)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Permutation, b[i].Permutation)
	}
}

func TestSearch_SingleDimension(t *testing.T) {
	points := make([]point.Point, 12)
	for i := range points {
		points[i] = point.Point{uint32(i * 3)}
	}

	s := newSearcher(t, func(o *Options) { o.MaxIterations = 2 })
	best, err := s.Search(context.Background(), points, nil)
	require.NoError(t, err)
	assert.Equal(t, hilbert.Identity(1), best.Permutation)
}

func TestSearch_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSearcher(t)
	_, err := s.Search(ctx, clusteredPoints(t, 17), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(func(o *Options) { o.BitsPerDimension = 0 })
	assert.Error(t, err)

	_, err = New(func(o *Options) { o.BitsPerDimension = 33 })
	assert.Error(t, err)

	s, err := New(func(o *Options) {
		o.ParallelTrials = -1
		o.MaxStall = 0
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Options().ParallelTrials)
	assert.Equal(t, 1, s.Options().MaxStall)
}
