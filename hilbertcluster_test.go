package hilbertcluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/point"
	"github.com/cohenw/hilbertcluster/testutil"
)

func clusteredPoints(t *testing.T, clusters, dims, minSize, maxSize int, seed int64) ([]point.Point, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	return testutil.GaussianClusters(rng, testutil.GaussianConfig{
		Clusters:      clusters,
		Dimensions:    dims,
		MaxCoordinate: 1023,
		MinSize:       minSize,
		MaxSize:       maxSize,
		StdDev:        4,
	})
}

func TestNew_InvalidBits(t *testing.T) {
	_, err := New(0)
	var ib *ErrInvalidBits
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, 0, ib.Bits)

	_, err = New(64)
	assert.ErrorAs(t, err, &ib)
}

func TestFindBestPermutation_TooFewPoints(t *testing.T) {
	hc, err := New(10)
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 1, 4, 9, 9, 1)
	_, err = hc.FindBestPermutation(context.Background(), points[:9], nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestFindBestPermutation(t *testing.T) {
	hc, err := New(10, WithSeed(42), WithMaxIterations(3))
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 4, 8, 20, 30, 2)
	best, err := hc.FindBestPermutation(context.Background(), points, nil)
	require.NoError(t, err)
	assert.True(t, best.Permutation.Valid())
	assert.Greater(t, best.EstimatedClusterCount, 0)
}

func TestFindBestPermutations_UsesConfiguredPoolSize(t *testing.T) {
	hc, err := New(10, WithPoolSize(3), WithSeed(42))
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 4, 8, 20, 30, 3)
	results, err := hc.FindBestPermutations(context.Background(), points, 0, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)
	assert.Greater(t, len(results), 1)
}

func TestCluster_EndToEnd(t *testing.T) {
	hc, err := New(10, WithSeed(7), WithOutlierSize(3))
	require.NoError(t, err)

	points, truth := clusteredPoints(t, 3, 6, 25, 35, 4)
	partition, best, err := hc.Cluster(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, best.EstimatedClusterCount, partition.Len())
	assert.Len(t, partition.Assignments(), len(points))

	score := testutil.BCubed(truth, partition.Assignments())
	assert.Greater(t, score, 0.9, "BCubed score %f", score)
}

func TestCluster_SingleBlobIsOneCluster(t *testing.T) {
	hc, err := New(10, WithSeed(3))
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 1, 6, 40, 40, 5)
	partition, best, err := hc.Cluster(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, 1, best.EstimatedClusterCount)
	assert.Equal(t, 1, partition.Len())
}

func TestSearch_MetricsRecorded(t *testing.T) {
	mc := &BasicMetricsCollector{}
	hc, err := New(10, WithMetricsCollector(mc), WithMaxIterations(2), WithSeed(1))
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 3, 6, 15, 20, 6)
	_, err = hc.FindBestPermutation(context.Background(), points, nil)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Greater(t, stats.TrialCount, int64(0))
	assert.Greater(t, stats.RoundCount, int64(0))
}

func TestNew_CustomEstimator(t *testing.T) {
	est := cluster.GapEstimator{OutlierSize: 1, NoiseSkipBy: 1}
	hc, err := New(10, WithEstimator(est), WithSeed(2), WithMaxIterations(1))
	require.NoError(t, err)

	points, _ := clusteredPoints(t, 2, 6, 15, 20, 7)
	best, err := hc.FindBestPermutation(context.Background(), points, nil)
	require.NoError(t, err)
	assert.True(t, best.Permutation.Valid())
}

func TestTranslateError_Nil(t *testing.T) {
	assert.NoError(t, translateError(nil))
}
