package hilbertcluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohenw/hilbertcluster/blobstore"
	"github.com/cohenw/hilbertcluster/codec"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/optimizer"
	"github.com/cohenw/hilbertcluster/testutil"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		BitsPerDimension: 10,
		Results: []SnapshotResult{
			{Permutation: []int{2, 0, 1}, EstimatedClusterCount: 3, MergeSquareDistance: 44},
			{Permutation: []int{0, 1, 2}, EstimatedClusterCount: 5, MergeSquareDistance: 17},
		},
	}
}

func TestSnapshot_EncodeDecodeRoundtrip(t *testing.T) {
	for _, comp := range []Compression{CompressionZstd, CompressionLZ4, CompressionNone} {
		t.Run(comp.String(), func(t *testing.T) {
			snap := testSnapshot()

			data, err := EncodeSnapshot(snap, codec.Default, comp)
			require.NoError(t, err)

			got, err := DecodeSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, snap, got)
		})
	}
}

func TestSnapshot_DecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeSnapshot([]byte("not a snapshot"))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = DecodeSnapshot(nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestSnapshot_DecodeRejectsTruncatedHeader(t *testing.T) {
	snap := testSnapshot()
	data, err := EncodeSnapshot(snap, codec.Default, CompressionNone)
	require.NoError(t, err)

	_, err = DecodeSnapshot(data[:5])
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestSnapshot_Best(t *testing.T) {
	snap := testSnapshot()
	best, ok := snap.Best()
	require.True(t, ok)
	assert.Equal(t, 3, best.EstimatedClusterCount)
	assert.Equal(t, hilbert.Permutation{2, 0, 1}, snap.BestPermutation())

	empty := &Snapshot{}
	_, ok = empty.Best()
	assert.False(t, ok)
	assert.Nil(t, empty.BestPermutation())
}

func TestSnapshot_CompressionNames(t *testing.T) {
	assert.Equal(t, "zstd", CompressionZstd.String())
	assert.Equal(t, "lz4", CompressionLZ4.String())
	assert.Equal(t, "none", CompressionNone.String())

	for _, name := range []string{"zstd", "lz4", "none"} {
		c, ok := compressionByName(name)
		assert.True(t, ok)
		assert.Equal(t, name, c.String())
	}
	_, ok := compressionByName("snappy")
	assert.False(t, ok)
}

func TestSaveLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(5))
	points, _ := testutil.GaussianClusters(rng, testutil.GaussianConfig{
		Clusters:      3,
		Dimensions:    6,
		MaxCoordinate: 1023,
		MinSize:       15,
		MaxSize:       20,
		StdDev:        4,
	})

	hc, err := New(10, WithSeed(7), WithMaxIterations(2))
	require.NoError(t, err)

	results, err := hc.FindBestPermutations(ctx, points, 2, nil)
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	require.NoError(t, hc.SaveSnapshot(ctx, store, "best.snap", results))

	snap, err := hc.LoadSnapshot(ctx, store, "best.snap")
	require.NoError(t, err)
	assert.Equal(t, 10, snap.BitsPerDimension)
	require.Len(t, snap.Results, len(results))
	for i, r := range results {
		assert.Equal(t, []int(r.Permutation), snap.Results[i].Permutation)
		assert.Equal(t, r.EstimatedClusterCount, snap.Results[i].EstimatedClusterCount)
		assert.Equal(t, r.MergeSquareDistance, snap.Results[i].MergeSquareDistance)
	}

	// The stored permutation rebuilds the same index.
	ix, err := hilbert.BuildIndex(points, snap.BestPermutation(), snap.BitsPerDimension)
	require.NoError(t, err)
	assert.Equal(t, results[0].Index.Len(), ix.Len())
}

func TestLoadSnapshot_Missing(t *testing.T) {
	hc, err := New(10)
	require.NoError(t, err)

	_, err = hc.LoadSnapshot(context.Background(), blobstore.NewMemoryStore(), "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSnapshot_MetricsRecorded(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	hc, err := New(10, WithMetricsCollector(mc), WithCompression(CompressionLZ4))
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	require.NoError(t, hc.SaveSnapshot(ctx, store, "s", []optimizer.Result{}))
	_, err = hc.LoadSnapshot(ctx, store, "s")
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.SnapshotCount)
	assert.Equal(t, int64(0), stats.SnapshotErrors)
	assert.Greater(t, stats.SnapshotBytes, int64(0))
}
