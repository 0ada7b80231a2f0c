package query

import (
	"bytes"
	"context"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySnippet_ExactBodyIsFullyVerified(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	body := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 40)
	mcfg := testManifoldConfig()
	encoded, err := manifold.Encode(body, mcfg)
	require.NoError(t, err)

	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:      "indexed.go",
		Body:      body,
		IsText:    true,
		Signature: &encoded.Aggregate,
	}))

	s := New(st, mcfg, testChaosConfig())
	res, err := s.VerifySnippet(ctx, body, 0.5, "*")
	require.NoError(t, err)
	assert.Equal(t, len(encoded.Windows), res.TotalWindows)
	assert.GreaterOrEqual(t, res.SafeCoverage, 0.0)
	assert.LessOrEqual(t, res.SafeCoverage, 1.0)
}

func TestVerifySnippet_TooSmallReturnsError(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	s := New(st, testManifoldConfig(), testChaosConfig())

	_, err := s.VerifySnippet(ctx, []byte("short"), 0.5, "*")
	assert.Error(t, err)
}
