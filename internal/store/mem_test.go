package store

import (
	"context"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(c, s, e float64) types.Signature {
	return types.Signature{Coherence: c, Stability: s, Entropy: e}
}

func TestMemStore_SignatureIndexConsistency(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	s1 := sig(0.5, 0.5, 0.5)
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "a.go", Body: []byte("a"), Signature: &s1}))
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "b.go", Body: []byte("b"), Signature: &s1}))

	paths, err := st.ListPaths(ctx, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, paths)

	st.mu.RLock()
	set := st.sigIdx[s1.String()]
	st.mu.RUnlock()
	assert.Len(t, set, 2)
	_, okA := set["a.go"]
	_, okB := set["b.go"]
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestMemStore_PutFileReplacesSignatureMapping(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	s1 := sig(0.1, 0.1, 0.1)
	s2 := sig(0.9, 0.9, 0.9)

	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "a.go", Signature: &s1}))
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "a.go", Signature: &s2}))

	got, err := st.GetSignature(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, s2, got)

	st.mu.RLock()
	_, stillThere := st.sigIdx[s1.String()]
	st.mu.RUnlock()
	assert.False(t, stillThere, "old signature mapping must be removed")
}

func TestMemStore_DeletionAtomicity(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	s1 := sig(0.5, 0.5, 0.5)
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:         "a.go",
		Body:         []byte("a"),
		Signature:    &s1,
		ChaosProfile: &types.ChaosProfile{ChaosScore: 0.1, WindowsAnalyzed: 1},
	}))

	require.NoError(t, st.DeleteFile(ctx, "a.go"))

	_, err := st.GetFile(ctx, "a.go")
	assert.Error(t, err)
	_, err = st.GetSignature(ctx, "a.go")
	assert.Error(t, err)
	_, err = st.GetChaosProfile(ctx, "a.go")
	assert.Error(t, err)

	st.mu.RLock()
	_, inIdx := st.sigIdx[s1.String()]
	st.mu.RUnlock()
	assert.False(t, inIdx)
}

func TestMemStore_NeighborhoodSymmetry(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	sp := sig(0.500, 0.500, 0.500)
	sq := sig(0.510, 0.505, 0.495)

	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "p.go", Signature: &sp}))
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{Path: "q.go", Signature: &sq}))

	fromP, err := st.Neighbors(ctx, sp, 0.05, "*", 10)
	require.NoError(t, err)
	var pHasQ bool
	for _, r := range fromP {
		if r.Path == "q.go" {
			pHasQ = true
		}
	}
	require.True(t, pHasQ)

	fromQ, err := st.Neighbors(ctx, sq, 0.05, "*", 10)
	require.NoError(t, err)
	var qHasP bool
	for _, r := range fromQ {
		if r.Path == "p.go" {
			qHasP = true
		}
	}
	assert.True(t, qHasP)
}

func TestMemStore_RankByChaosStableOrder(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	for i, score := range []float64{0.1, 0.9, 0.5} {
		path := string(rune('a' + i))
		require.NoError(t, st.PutFile(ctx, &types.FileRecord{
			Path:         path,
			ChaosProfile: &types.ChaosProfile{ChaosScore: score, WindowsAnalyzed: 1},
		}))
	}

	first, err := st.RankByChaos(ctx, "*", 10, true)
	require.NoError(t, err)
	second, err := st.RankByChaos(ctx, "*", 10, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "b", first[0].Path)
}

func TestMemStore_Facts(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	require.NoError(t, st.PutFact(ctx, "note1", "remember this"))
	text, err := st.GetFact(ctx, "note1")
	require.NoError(t, err)
	assert.Equal(t, "remember this", text)

	paths, err := st.ListPaths(ctx, "__fact__/**")
	require.NoError(t, err)
	assert.Contains(t, paths, "__fact__/note1")
}
