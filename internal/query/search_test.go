package query

import (
	"context"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifoldConfig() manifold.Config {
	return manifold.Config{WindowBytes: 64, StrideBytes: 48, Precision: 3}
}

func testChaosConfig() chaos.Config {
	return chaos.Config{StateWindow: 5, HazardPercentile: 0.75, HighThreshold: 0.35, HazardCenter: "abs"}
}

func TestSearchSubstring_Literal(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:   "a.go",
		Body:   []byte("line one\nline TODO fix\nline three\n"),
		IsText: true,
	}))

	s := New(st, testManifoldConfig(), testChaosConfig())
	res, err := s.SearchSubstring(ctx, "todo", "*", false, 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 2, res.Hits[0].Line)
	assert.Len(t, res.Hits[0].Context, 3)
	assert.Equal(t, 1, res.Total)
}

func TestSearchSubstring_Regex(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:   "a.go",
		Body:   []byte("foo123\nbar\nfoo456\n"),
		IsText: true,
	}))

	s := New(st, testManifoldConfig(), testChaosConfig())
	res, err := s.SearchSubstring(ctx, `foo\d+`, "*", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSearchSubstring_LimitCapsHitsNotTotal(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:   "a.go",
		Body:   []byte("x\nx\nx\nx\n"),
		IsText: true,
	}))

	s := New(st, testManifoldConfig(), testChaosConfig())
	res, err := s.SearchSubstring(ctx, "x", "*", false, 2)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
	assert.Equal(t, 4, res.Total)
}
