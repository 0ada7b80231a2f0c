// Package store implements C3, the structural index: a transactional
// mapping from repository-relative paths to bodies, aggregate signatures,
// and chaos profiles, plus the signature-keyed neighborhood index (spec
// §4.3). The Store interface is the only contract components C4-C7 depend
// on; MemStore and RedisStore are interchangeable implementations of it.
package store

import (
	"context"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	mstats "github.com/montanaflynn/stats"

	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Store is the persistence contract every other component programs
// against. Implementations must honor spec §3's invariants: every file
// record with a signature has exactly one sigidx entry, chaos profiles and
// signatures never outlive their file record, and put_file/delete_file on a
// single path are globally ordered.
type Store interface {
	PutFile(ctx context.Context, rec *types.FileRecord) error
	DeleteFile(ctx context.Context, path string) error
	GetFile(ctx context.Context, path string) ([]byte, error)
	GetSignature(ctx context.Context, path string) (types.Signature, error)
	GetChaosProfile(ctx context.Context, path string) (*types.ChaosProfile, error)
	ListPaths(ctx context.Context, glob string) ([]string, error)
	Neighbors(ctx context.Context, sig types.Signature, tolerance float64, scopeGlob string, limit int) ([]types.NeighborResult, error)
	RankByChaos(ctx context.Context, scopeGlob string, limit int, descending bool) ([]types.ChaosRankResult, error)
	PutFact(ctx context.Context, id, text string) error
	GetFact(ctx context.Context, id string) (string, error)
	AllFiles(ctx context.Context) (map[string]*types.FileRecord, error)
}

// matchGlob validates and evaluates a glob pattern against a path, using
// doublestar's "*", "**", "?", and "[...]" semantics (spec §4.3). An empty
// pattern or a bare "*" is treated as match-all, including paths that
// contain "/".
func matchGlob(pattern, path string) (bool, error) {
	if pattern == "" || pattern == "*" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false, cerrors.InvalidGlob(pattern, err)
	}
	return ok, nil
}

// rankNeighbors sorts candidates by ascending delta, breaking ties by path,
// and truncates to limit (spec §4.3 "neighbors").
func rankNeighbors(results []types.NeighborResult, limit int) []types.NeighborResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Delta != results[j].Delta {
			return results[i].Delta < results[j].Delta
		}
		return results[i].Path < results[j].Path
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// chaosTieScore gives ChaosScore ties a secondary ordering so that, of two
// files persisting at the same score, the one whose entropy/coherence
// profile reads as more disordered sorts first. Computed via
// montanaflynn/stats.Mean rather than a hand-rolled average, matching the
// cross-checked-statistics approach already used for the hazard threshold.
func chaosTieScore(p types.ChaosProfile) float64 {
	mean, err := mstats.Mean(mstats.Float64Data{p.Entropy, 1 - p.Coherence})
	if err != nil {
		return 0
	}
	return mean
}

// rankByChaos sorts chaos results by score (descending by default), breaking
// ties first by the entropy/coherence tie score and finally by path, then
// truncates to limit.
func rankByChaos(results []types.ChaosRankResult, limit int, descending bool) []types.ChaosRankResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Profile.ChaosScore != results[j].Profile.ChaosScore {
			if descending {
				return results[i].Profile.ChaosScore > results[j].Profile.ChaosScore
			}
			return results[i].Profile.ChaosScore < results[j].Profile.ChaosScore
		}
		ti, tj := chaosTieScore(results[i].Profile), chaosTieScore(results[j].Profile)
		if ti != tj {
			return ti > tj
		}
		return results[i].Path < results[j].Path
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
