package store

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/types"
)

const shardCount = 32

// MemStore is an in-process Store used by tests and by the CLI when
// "--backend mem" is selected. Writes to a single path are serialized by a
// shard lock keyed on the path hash. Every write also holds the store-wide
// mu lock while it updates the maps, so writes to different paths do not
// run concurrently either.
type MemStore struct {
	shards [shardCount]sync.Mutex

	mu      sync.RWMutex // guards the top-level maps themselves (add/remove keys)
	files   map[string]*types.FileRecord
	sigIdx  map[string]map[string]struct{}
	facts   map[string]string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		files:  make(map[string]*types.FileRecord),
		sigIdx: make(map[string]map[string]struct{}),
		facts:  make(map[string]string),
	}
}

func (m *MemStore) shardFor(path string) *sync.Mutex {
	h := xxhash.Sum64String(path)
	return &m.shards[h%shardCount]
}

// PutFile implements Store.
func (m *MemStore) PutFile(ctx context.Context, rec *types.FileRecord) error {
	lock := m.shardFor(rec.Path)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.files[rec.Path]; ok && prev.Signature != nil {
		m.removeFromSigIndex(prev.Signature.String(), rec.Path)
	}

	copyRec := *rec
	m.files[rec.Path] = &copyRec

	if rec.Signature != nil {
		key := rec.Signature.String()
		set, ok := m.sigIdx[key]
		if !ok {
			set = make(map[string]struct{})
			m.sigIdx[key] = set
		}
		set[rec.Path] = struct{}{}
	}

	return nil
}

func (m *MemStore) removeFromSigIndex(sig, path string) {
	if set, ok := m.sigIdx[sig]; ok {
		delete(set, path)
		if len(set) == 0 {
			delete(m.sigIdx, sig)
		}
	}
}

// DeleteFile implements Store.
func (m *MemStore) DeleteFile(ctx context.Context, path string) error {
	lock := m.shardFor(path)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.files[path]
	if !ok {
		return nil
	}
	if rec.Signature != nil {
		m.removeFromSigIndex(rec.Signature.String(), path)
	}
	delete(m.files, path)
	return nil
}

// GetFile implements Store.
func (m *MemStore) GetFile(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[path]
	if !ok {
		return nil, cerrors.NotFound("get_file", path)
	}
	return append([]byte(nil), rec.Body...), nil
}

// GetSignature implements Store.
func (m *MemStore) GetSignature(ctx context.Context, path string) (types.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[path]
	if !ok || rec.Signature == nil {
		return types.Signature{}, cerrors.NotFound("get_signature", path)
	}
	return *rec.Signature, nil
}

// GetChaosProfile implements Store.
func (m *MemStore) GetChaosProfile(ctx context.Context, path string) (*types.ChaosProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[path]
	if !ok {
		return nil, cerrors.NotFound("get_chaos_profile", path)
	}
	return rec.ChaosProfile, nil
}

// ListPaths implements Store.
func (m *MemStore) ListPaths(ctx context.Context, glob string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for path := range m.files {
		ok, err := matchGlob(glob, path)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, path)
		}
	}
	for id := range m.facts {
		factPath := "__fact__/" + id
		ok, err := matchGlob(glob, factPath)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, factPath)
		}
	}
	return out, nil
}

// Neighbors implements Store.
func (m *MemStore) Neighbors(ctx context.Context, sig types.Signature, tolerance float64, scopeGlob string, limit int) ([]types.NeighborResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []types.NeighborResult
	for path, rec := range m.files {
		if rec.Signature == nil {
			continue
		}
		ok, err := matchGlob(scopeGlob, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		delta := types.ComponentDelta(*rec.Signature, sig)
		if delta.Within(tolerance) {
			results = append(results, types.NeighborResult{
				Path:      path,
				Signature: *rec.Signature,
				Delta:     delta.Magnitude(),
			})
		}
	}
	return rankNeighbors(results, limit), nil
}

// RankByChaos implements Store.
func (m *MemStore) RankByChaos(ctx context.Context, scopeGlob string, limit int, descending bool) ([]types.ChaosRankResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []types.ChaosRankResult
	for path, rec := range m.files {
		if rec.ChaosProfile == nil {
			continue
		}
		ok, err := matchGlob(scopeGlob, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		results = append(results, types.ChaosRankResult{Path: path, Profile: *rec.ChaosProfile})
	}
	return rankByChaos(results, limit, descending), nil
}

// PutFact implements Store.
func (m *MemStore) PutFact(ctx context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[id] = text
	return nil
}

// GetFact implements Store.
func (m *MemStore) GetFact(ctx context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.facts[id]
	if !ok {
		return "", cerrors.NotFound("get_fact", id)
	}
	return text, nil
}

// AllFiles implements Store. It returns a shallow snapshot used by C5 to
// build the dependency graph.
func (m *MemStore) AllFiles(ctx context.Context) (map[string]*types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*types.FileRecord, len(m.files))
	for path, rec := range m.files {
		copyRec := *rec
		out[path] = &copyRec
	}
	return out, nil
}
