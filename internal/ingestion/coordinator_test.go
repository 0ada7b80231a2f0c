package ingestion

import (
	"context"
	"testing"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/config"
	"github.com/standardbeagle/chaoslens/internal/depgraph"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, root string) (*Coordinator, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	g := depgraph.New(depgraph.NewRegexExtractor())
	walker := &Walker{Root: root, MaxBytesPerFile: 512000}
	pipeline := NewPipeline(
		manifold.Config{WindowBytes: 64, StrideBytes: 48, Precision: 3},
		chaos.Config{StateWindow: 5, HazardPercentile: 0.75, HighThreshold: 0.35, HazardCenter: "abs"},
		nil,
		depgraph.NewRegexExtractor(),
	)
	cfg := config.Index{WorkerCap: 4, StoreTimeoutMs: 5000}
	return New(walker, pipeline, st, g, cfg), st
}

func TestCoordinator_IngestPopulatesStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"hi\") }\n")
	writeFile(t, root, "b.bin", string([]byte{0x89, 0x50, 0x4E, 0x47, 0, 0, 0, 0}))

	c, st := newTestCoordinator(t, root)
	summary, err := c.Ingest(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BinaryFiles)
	assert.GreaterOrEqual(t, summary.TextFiles, 1)
	assert.False(t, summary.Cancelled)

	body, err := st.GetFile(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Contains(t, string(body), "package main")
}

func TestCoordinator_IdempotentIngest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\nfunc main() {}\n")

	c, st := newTestCoordinator(t, root)
	ctx := context.Background()
	_, err := c.Ingest(ctx, false)
	require.NoError(t, err)
	first, err := st.AllFiles(ctx)
	require.NoError(t, err)

	_, err = c.Ingest(ctx, false)
	require.NoError(t, err)
	second, err := st.AllFiles(ctx)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for path, rec := range first {
		other, ok := second[path]
		require.True(t, ok)
		assert.Equal(t, rec.Signature, other.Signature)
	}
}

func TestCoordinator_ChangedContentInvalidatesCachedHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\n// original body, long enough to fill one encoder window\nfunc main() {}\n")

	c, st := newTestCoordinator(t, root)
	ctx := context.Background()
	_, err := c.Ingest(ctx, false)
	require.NoError(t, err)
	before, err := st.GetSignature(ctx, "a.go")
	require.NoError(t, err)

	writeFile(t, root, "a.go", "package main\n\nfunc main() {\n\tprintln(\"changed\")\n\tprintln(\"CHANGED AGAIN: 0123456789 !@#$%^&*()\")\n}\n")
	_, err = c.Ingest(ctx, false)
	require.NoError(t, err)
	after, err := st.GetSignature(ctx, "a.go")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestCoordinator_ClearFirstRemovesOldCorpus(t *testing.T) {
	rootX := t.TempDir()
	writeFile(t, rootX, "x.go", "package x\n")
	c, st := newTestCoordinator(t, rootX)
	ctx := context.Background()
	_, err := c.Ingest(ctx, false)
	require.NoError(t, err)

	rootY := t.TempDir()
	writeFile(t, rootY, "y.go", "package y\n")
	c.Walker.Root = rootY
	_, err = c.Ingest(ctx, true)
	require.NoError(t, err)

	paths, err := st.ListPaths(ctx, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y.go", factPathPrefix + LastIngestFactID}, paths)
}

func TestCoordinator_CancellationReturnsPartialResult(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, string(rune('a'+i))+".go", "package main\nfunc main() {}\n")
	}
	c, _ := newTestCoordinator(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := c.Ingest(ctx, false)
	require.NoError(t, err)
	assert.True(t, summary.Cancelled)
}
