package depgraph

import (
	"context"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChain(t *testing.T, st *store.MemStore) {
	t.Helper()
	ctx := context.Background()
	files := map[string]string{
		"a.go": `package main
import "pkg/b"
`,
		"pkg/b.go": `package pkg
import "pkg/c"
`,
		"pkg/c.go": `package pkg
`,
	}
	for path, body := range files {
		require.NoError(t, st.PutFile(ctx, &types.FileRecord{
			Path:   path,
			Body:   []byte(body),
			IsText: true,
		}))
	}
}

func TestGraph_BlastRadiusAndImports(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	seedChain(t, st)

	g := New(NewRegexExtractor())

	imports, err := g.Imports(ctx, st, "a.go")
	require.NoError(t, err)
	assert.Contains(t, imports, "pkg/b.go")

	br, err := g.BlastRadius(ctx, st, "pkg/c.go", 10)
	require.NoError(t, err)
	assert.Contains(t, br.ImportedBy, "pkg/b.go")
	assert.Contains(t, br.ImportedBy, "a.go")
	assert.Equal(t, 2, br.Size)
	assert.Equal(t, 2, br.Depth)
}

func TestGraph_IsCore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	seedChain(t, st)

	g := New(NewRegexExtractor())

	core, err := g.IsCore(ctx, st, "pkg/c.go", 2)
	require.NoError(t, err)
	assert.True(t, core)

	core, err = g.IsCore(ctx, st, "pkg/c.go", 3)
	require.NoError(t, err)
	assert.False(t, core)
}

func TestGraph_InvalidateTriggersRebuild(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	seedChain(t, st)

	g := New(NewRegexExtractor())
	_, err := g.Imports(ctx, st, "a.go")
	require.NoError(t, err)

	require.NoError(t, st.PutFile(ctx, &types.FileRecord{
		Path:   "a.go",
		Body:   []byte("package main\nimport \"pkg/c\"\n"),
		IsText: true,
	}))
	g.Invalidate()

	imports, err := g.Imports(ctx, st, "a.go")
	require.NoError(t, err)
	assert.Contains(t, imports, "pkg/c.go")
	assert.NotContains(t, imports, "pkg/b.go")
}

func TestGraph_UnknownPath(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	seedChain(t, st)

	g := New(NewRegexExtractor())
	_, err := g.Imports(ctx, st, "missing.go")
	assert.Error(t, err)
}
