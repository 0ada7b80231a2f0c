package query

import (
	"context"
	"math/rand"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCluster_SeparatesDistinctGroups(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	lowGroup := []string{"a.go", "b.go", "c.go"}
	highGroup := []string{"x.go", "y.go", "z.go"}
	for _, p := range lowGroup {
		sig := types.Signature{Coherence: 0.1, Stability: 0.1, Entropy: 0.1}
		require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: p, Signature: &sig}))
	}
	for _, p := range highGroup {
		sig := types.Signature{Coherence: 0.9, Stability: 0.9, Entropy: 0.9}
		require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: p, Signature: &sig}))
	}

	s := New(st, testManifoldConfig(), testChaosConfig())
	res, err := s.Cluster(ctx, "*", 2, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, res.Centroids, 2)

	for _, p := range lowGroup[1:] {
		assert.Equal(t, res.Assignment[lowGroup[0]], res.Assignment[p])
	}
	for _, p := range highGroup[1:] {
		assert.Equal(t, res.Assignment[highGroup[0]], res.Assignment[p])
	}
	assert.NotEqual(t, res.Assignment[lowGroup[0]], res.Assignment[highGroup[0]])
}

func TestCluster_KClampedToPointCount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	sig := types.Signature{Coherence: 0.5, Stability: 0.5, Entropy: 0.5}
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "a.go", Signature: &sig}))

	s := New(st, testManifoldConfig(), testChaosConfig())
	res, err := s.Cluster(ctx, "*", 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, res.Centroids, 1)
	assert.ElementsMatch(t, []string{"a.go"}, sortedPaths(res.Assignment))
}
