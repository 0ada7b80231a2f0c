// Package depgraph implements C5, the dependency analyzer: a directed
// import graph over indexed files with forward (imports) and reverse
// (blast_radius) reachability queries.
package depgraph

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/standardbeagle/chaoslens/internal/debug"
	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Graph is C5's single-writer/many-reader dependency graph. Rebuild swaps
// in a freshly built graph atomically; concurrent readers keep using the
// graph they already held a reference to (spec §5).
type Graph struct {
	extractor ImportExtractor

	mu       sync.RWMutex
	g        *simple.DirectedGraph
	pathToID map[string]int64
	idToPath map[int64]string

	dirtyMu sync.Mutex
	dirty   bool
}

// New creates a Graph with the given extractor. It starts empty and dirty,
// so the first query triggers a build.
func New(extractor ImportExtractor) *Graph {
	return &Graph{
		extractor: extractor,
		g:         simple.NewDirectedGraph(),
		pathToID:  make(map[string]int64),
		idToPath:  make(map[int64]string),
		dirty:     true,
	}
}

// Invalidate marks the graph stale. Called by C4 after any put_file or
// delete_file that changed a file's import set; the next query rebuilds.
func (d *Graph) Invalidate() {
	d.dirtyMu.Lock()
	d.dirty = true
	d.dirtyMu.Unlock()
}

func (d *Graph) ensureBuilt(ctx context.Context, st store.Store) error {
	d.dirtyMu.Lock()
	needsBuild := d.dirty
	d.dirtyMu.Unlock()
	if !needsBuild {
		return nil
	}
	if err := d.Rebuild(ctx, st); err != nil {
		return err
	}
	return nil
}

// Rebuild reconstructs the graph from the current contents of st. It can
// run concurrently with readers of the previous graph; the swap at the end
// is atomic under mu.
func (d *Graph) Rebuild(ctx context.Context, st store.Store) error {
	files, err := st.AllFiles(ctx)
	if err != nil {
		return err
	}

	moduleToPath := make(map[string]string)
	baseToPaths := make(map[string][]string)
	for path, rec := range files {
		if !rec.IsText {
			continue
		}
		mod, ok := d.extractor.PathToModule(path)
		if !ok {
			continue
		}
		moduleToPath[mod] = path
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		baseToPaths[base] = append(baseToPaths[base], path)
	}
	for base := range baseToPaths {
		sort.Strings(baseToPaths[base])
	}

	g2 := simple.NewDirectedGraph()
	pathToID := make(map[string]int64, len(files))
	idToPath := make(map[int64]string, len(files))
	var nextID int64
	idFor := func(path string) int64 {
		if id, ok := pathToID[path]; ok {
			return id
		}
		id := nextID
		nextID++
		pathToID[path] = id
		idToPath[id] = path
		g2.AddNode(simple.Node(id))
		return id
	}

	for path := range files {
		idFor(path)
	}

	edgeCount := 0
	for path, rec := range files {
		if !rec.IsText {
			continue
		}
		imports := d.extractor.ExtractImports(path, rec.Body)
		uid := idFor(path)
		for spec := range imports {
			target, ok := resolveModule(moduleToPath, baseToPaths, spec)
			if !ok || target == path {
				continue
			}
			vid := idFor(target)
			if !g2.HasEdgeFromTo(uid, vid) {
				g2.SetEdge(simple.Edge{F: simple.Node(uid), T: simple.Node(vid)})
				edgeCount++
			}
		}
	}

	d.mu.Lock()
	d.g = g2
	d.pathToID = pathToID
	d.idToPath = idToPath
	d.mu.Unlock()

	d.dirtyMu.Lock()
	d.dirty = false
	d.dirtyMu.Unlock()

	debug.Log("DEPGRAPH", "rebuilt graph: %d nodes, %d edges", len(files), edgeCount)
	return nil
}

// resolveModule matches an extracted import specifier against the known
// module names, falling back to a base-name match for relative specifiers
// like "./util" that the regex extractor cannot resolve exactly.
func resolveModule(moduleToPath map[string]string, baseToPaths map[string][]string, spec string) (string, bool) {
	if path, ok := moduleToPath[spec]; ok {
		return path, true
	}
	trimmed := strings.TrimPrefix(spec, "./")
	trimmed = strings.TrimPrefix(trimmed, "../")
	if path, ok := moduleToPath[trimmed]; ok {
		return path, true
	}
	base := filepath.Base(trimmed)
	if candidates, ok := baseToPaths[base]; ok && len(candidates) > 0 {
		return candidates[0], true
	}
	return "", false
}

// reverseView presents g with edges reversed, so forward BFS over it walks
// incoming edges of the underlying graph.
type reverseView struct {
	g *simple.DirectedGraph
}

func (r reverseView) Node(id int64) graph.Node       { return r.g.Node(id) }
func (r reverseView) Nodes() graph.Nodes             { return r.g.Nodes() }
func (r reverseView) From(id int64) graph.Nodes      { return r.g.To(id) }
func (r reverseView) HasEdgeBetween(x, y int64) bool { return r.g.HasEdgeBetween(x, y) }
func (r reverseView) Edge(u, v int64) graph.Edge     { return r.g.Edge(v, u) }

// BlastRadius implements the C5 query of the same name: BFS over reverse
// edges from path, bounded by depthCap.
func (d *Graph) BlastRadius(ctx context.Context, st store.Store, path string, depthCap int) (types.BlastRadius, error) {
	if err := d.ensureBuilt(ctx, st); err != nil {
		return types.BlastRadius{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.pathToID[path]
	if !ok {
		return types.BlastRadius{}, cerrors.NotFound("blast_radius", path)
	}

	imported := make(map[string]struct{})
	maxDepth := 0
	var bf traverse.BreadthFirst
	bf.Walk(reverseView{d.g}, d.g.Node(id), func(n graph.Node, depth int) bool {
		if depth > depthCap {
			return true
		}
		if n.ID() != id {
			imported[d.idToPath[n.ID()]] = struct{}{}
			if depth > maxDepth {
				maxDepth = depth
			}
		}
		return false
	})

	return types.BlastRadius{ImportedBy: imported, Depth: maxDepth, Size: len(imported)}, nil
}

// Imports implements the C5 query: outbound neighbors of path.
func (d *Graph) Imports(ctx context.Context, st store.Store, path string) (map[string]struct{}, error) {
	if err := d.ensureBuilt(ctx, st); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.pathToID[path]
	if !ok {
		return nil, cerrors.NotFound("imports", path)
	}

	out := make(map[string]struct{})
	nodes := d.g.From(id)
	for nodes.Next() {
		out[d.idToPath[nodes.Node().ID()]] = struct{}{}
	}
	return out, nil
}

// IsCore implements the C5 query: blast_radius(path) >= minSize (default
// 10, spec §9 open question, overridable via config).
func (d *Graph) IsCore(ctx context.Context, st store.Store, path string, minSize int) (bool, error) {
	br, err := d.BlastRadius(ctx, st, path, 1<<30)
	if err != nil {
		return false, err
	}
	return br.Size >= minSize, nil
}
