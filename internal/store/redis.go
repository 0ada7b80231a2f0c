package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Key families of spec §4.3, opaque to everyone outside this file.
const (
	keyFilePrefix   = "file:"
	keySigPrefix    = "sig:"
	keyChaosPrefix  = "chaos:"
	keySigIdxPrefix = "sigidx:"
	keyFactPrefix   = "fact:"
	keyAllFiles     = "files"
	keyAllFacts     = "facts"
)

var retryBackoffs = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2500 * time.Millisecond}

// RedisStore is the production Store backed by a Redis-compatible
// key/value service (spec §6 "Persistent store"). Bodies are compressed
// with zstd; writes go through a single TxPipelined multi/exec per
// put_file/delete_file for all-or-nothing semantics.
type RedisStore struct {
	client *redis.Client
	prefix string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// NewRedisStore dials addr and wraps it as a Store. keyPrefix namespaces
// every key family, so one Redis instance can host multiple indexed roots.
func NewRedisStore(addr, password string, db int, keyPrefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &RedisStore{client: client, prefix: keyPrefix, enc: enc, dec: dec}, nil
}

func (s *RedisStore) key(prefix, suffix string) string {
	return s.prefix + prefix + suffix
}

func (s *RedisStore) compress(body []byte) []byte {
	return s.enc.EncodeAll(body, nil)
}

func (s *RedisStore) decompress(body []byte) ([]byte, error) {
	return s.dec.DecodeAll(body, nil)
}

// withRetry retries a transport-level operation up to 3 times with
// exponential backoff (100/500/2500ms), per spec §4.3 "Failure".
func withRetry(ctx context.Context, op, path string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == len(retryBackoffs) {
			break
		}
		select {
		case <-ctx.Done():
			return cerrors.Cancelled(op)
		case <-time.After(retryBackoffs[attempt]):
		}
	}
	return cerrors.StoreUnavailable(op, path, lastErr)
}

type chaosWire struct {
	ChaosScore      float64 `json:"chaos_score"`
	Entropy         float64 `json:"entropy"`
	Coherence       float64 `json:"coherence"`
	RiskClass       string  `json:"risk_class"`
	HazardThreshold float64 `json:"hazard_threshold"`
	WindowsAnalyzed int     `json:"windows_analyzed"`
	SymbolicStates  map[string]int `json:"symbolic_states"`
}

func toWire(p *types.ChaosProfile) chaosWire {
	states := map[string]int{"LOW": 0, "OSCILLATION": 0, "HIGH": 0}
	for st, count := range p.SymbolicStates {
		switch st {
		case types.StateLowFluctuation:
			states["LOW"] = count
		case types.StateOscillation:
			states["OSCILLATION"] = count
		case types.StatePersistentHigh:
			states["HIGH"] = count
		}
	}
	return chaosWire{
		ChaosScore:      p.ChaosScore,
		Entropy:         p.Entropy,
		Coherence:       p.Coherence,
		RiskClass:       string(p.RiskClass),
		HazardThreshold: p.HazardThreshold,
		WindowsAnalyzed: p.WindowsAnalyzed,
		SymbolicStates:  states,
	}
}

func fromWire(w chaosWire) *types.ChaosProfile {
	return &types.ChaosProfile{
		ChaosScore:      w.ChaosScore,
		Entropy:         w.Entropy,
		Coherence:       w.Coherence,
		RiskClass:       types.RiskClass(w.RiskClass),
		HazardThreshold: w.HazardThreshold,
		WindowsAnalyzed: w.WindowsAnalyzed,
		SymbolicStates: map[types.SymbolicState]int{
			types.StateLowFluctuation:  w.SymbolicStates["LOW"],
			types.StateOscillation:     w.SymbolicStates["OSCILLATION"],
			types.StatePersistentHigh:  w.SymbolicStates["HIGH"],
		},
	}
}

// PutFile implements Store as a single pipelined transaction (spec §4.3
// "Atomicity").
func (s *RedisStore) PutFile(ctx context.Context, rec *types.FileRecord) error {
	oldSig, err := s.client.Get(ctx, s.key(keySigPrefix, rec.Path)).Result()
	if err != nil && err != redis.Nil {
		return cerrors.StoreUnavailable("put_file", rec.Path, err)
	}

	newSig := ""
	if rec.Signature != nil {
		newSig = rec.Signature.String()
	}

	return withRetry(ctx, "put_file", rec.Path, func() error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key(keyFilePrefix, rec.Path), map[string]interface{}{
				"body":        s.compress(rec.Body),
				"size_bytes":  rec.SizeBytes,
				"modified_at": rec.ModifiedAt.Unix(),
				"is_text":     rec.IsText,
			})
			pipe.SAdd(ctx, s.key("", keyAllFiles), rec.Path)

			if oldSig != "" && oldSig != newSig {
				pipe.SRem(ctx, s.key(keySigIdxPrefix, oldSig), rec.Path)
			}

			if newSig != "" {
				pipe.Set(ctx, s.key(keySigPrefix, rec.Path), newSig, 0)
				pipe.SAdd(ctx, s.key(keySigIdxPrefix, newSig), rec.Path)
			} else {
				pipe.Del(ctx, s.key(keySigPrefix, rec.Path))
			}

			if rec.ChaosProfile != nil {
				data, mErr := json.Marshal(toWire(rec.ChaosProfile))
				if mErr != nil {
					return mErr
				}
				pipe.Set(ctx, s.key(keyChaosPrefix, rec.Path), data, 0)
			} else {
				pipe.Del(ctx, s.key(keyChaosPrefix, rec.Path))
			}

			return nil
		})
		return err
	})
}

// DeleteFile implements Store, atomically removing body, signature, chaos
// profile, and index entry (spec §3 invariant 3).
func (s *RedisStore) DeleteFile(ctx context.Context, path string) error {
	sig, err := s.client.Get(ctx, s.key(keySigPrefix, path)).Result()
	if err != nil && err != redis.Nil {
		return cerrors.StoreUnavailable("delete_file", path, err)
	}

	return withRetry(ctx, "delete_file", path, func() error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.key(keyFilePrefix, path))
			pipe.Del(ctx, s.key(keySigPrefix, path))
			pipe.Del(ctx, s.key(keyChaosPrefix, path))
			pipe.SRem(ctx, s.key("", keyAllFiles), path)
			if sig != "" {
				pipe.SRem(ctx, s.key(keySigIdxPrefix, sig), path)
			}
			return nil
		})
		return err
	})
}

// GetFile implements Store.
func (s *RedisStore) GetFile(ctx context.Context, path string) ([]byte, error) {
	compressed, err := s.client.HGet(ctx, s.key(keyFilePrefix, path), "body").Bytes()
	if err == redis.Nil {
		return nil, cerrors.NotFound("get_file", path)
	}
	if err != nil {
		return nil, cerrors.StoreUnavailable("get_file", path, err)
	}
	return s.decompress(compressed)
}

// GetSignature implements Store.
func (s *RedisStore) GetSignature(ctx context.Context, path string) (types.Signature, error) {
	raw, err := s.client.Get(ctx, s.key(keySigPrefix, path)).Result()
	if err == redis.Nil {
		return types.Signature{}, cerrors.NotFound("get_signature", path)
	}
	if err != nil {
		return types.Signature{}, cerrors.StoreUnavailable("get_signature", path, err)
	}
	sig, parseErr := types.ParseSignature(raw)
	if parseErr != nil {
		return types.Signature{}, cerrors.InvalidSignatureSyntax(raw, parseErr)
	}
	return sig, nil
}

// GetChaosProfile implements Store.
func (s *RedisStore) GetChaosProfile(ctx context.Context, path string) (*types.ChaosProfile, error) {
	raw, err := s.client.Get(ctx, s.key(keyChaosPrefix, path)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.StoreUnavailable("get_chaos_profile", path, err)
	}
	var wire chaosWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, cerrors.StoreUnavailable("get_chaos_profile", path, err)
	}
	return fromWire(wire), nil
}

// ListPaths implements Store. Redis has no native "**" glob, so this reads
// the full path set and filters with doublestar in the client, matching
// the semantics spec §4.3 assigns to list_paths.
func (s *RedisStore) ListPaths(ctx context.Context, glob string) ([]string, error) {
	paths, err := s.client.SMembers(ctx, s.key("", keyAllFiles)).Result()
	if err != nil {
		return nil, cerrors.StoreUnavailable("list_paths", "", err)
	}
	facts, err := s.client.SMembers(ctx, s.key("", keyAllFacts)).Result()
	if err != nil {
		return nil, cerrors.StoreUnavailable("list_paths", "", err)
	}
	for _, id := range facts {
		paths = append(paths, "__fact__/"+id)
	}

	var out []string
	for _, p := range paths {
		ok, mErr := matchGlob(glob, p)
		if mErr != nil {
			return nil, mErr
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Neighbors implements Store with a full scoped scan: it lists every path
// matching scopeGlob and compares each stored signature against sig. The
// sigidx sets are not consulted.
func (s *RedisStore) Neighbors(ctx context.Context, sig types.Signature, tolerance float64, scopeGlob string, limit int) ([]types.NeighborResult, error) {
	paths, err := s.ListPaths(ctx, scopeGlob)
	if err != nil {
		return nil, err
	}

	var results []types.NeighborResult
	for _, p := range paths {
		candidate, err := s.GetSignature(ctx, p)
		if err != nil {
			continue
		}
		delta := types.ComponentDelta(candidate, sig)
		if delta.Within(tolerance) {
			results = append(results, types.NeighborResult{Path: p, Signature: candidate, Delta: delta.Magnitude()})
		}
	}
	return rankNeighbors(results, limit), nil
}

// RankByChaos implements Store.
func (s *RedisStore) RankByChaos(ctx context.Context, scopeGlob string, limit int, descending bool) ([]types.ChaosRankResult, error) {
	paths, err := s.ListPaths(ctx, scopeGlob)
	if err != nil {
		return nil, err
	}

	var results []types.ChaosRankResult
	for _, p := range paths {
		profile, err := s.GetChaosProfile(ctx, p)
		if err != nil || profile == nil {
			continue
		}
		results = append(results, types.ChaosRankResult{Path: p, Profile: *profile})
	}
	return rankByChaos(results, limit, descending), nil
}

// PutFact implements Store.
func (s *RedisStore) PutFact(ctx context.Context, id, text string) error {
	return withRetry(ctx, "put_fact", id, func() error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(keyFactPrefix, id), text, 0)
			pipe.SAdd(ctx, s.key("", keyAllFacts), id)
			return nil
		})
		return err
	})
}

// GetFact implements Store.
func (s *RedisStore) GetFact(ctx context.Context, id string) (string, error) {
	text, err := s.client.Get(ctx, s.key(keyFactPrefix, id)).Result()
	if err == redis.Nil {
		return "", cerrors.NotFound("get_fact", id)
	}
	if err != nil {
		return "", cerrors.StoreUnavailable("get_fact", id, err)
	}
	return text, nil
}

// AllFiles implements Store, used by C5 to build the import graph.
func (s *RedisStore) AllFiles(ctx context.Context) (map[string]*types.FileRecord, error) {
	paths, err := s.client.SMembers(ctx, s.key("", keyAllFiles)).Result()
	if err != nil {
		return nil, cerrors.StoreUnavailable("all_files", "", err)
	}

	out := make(map[string]*types.FileRecord, len(paths))
	for _, p := range paths {
		body, err := s.GetFile(ctx, p)
		if err != nil {
			continue
		}
		rec := &types.FileRecord{Path: p, Body: body, SizeBytes: int64(len(body))}
		if isText, err := s.client.HGet(ctx, s.key(keyFilePrefix, p), "is_text").Bool(); err == nil {
			rec.IsText = isText
		}
		if sig, err := s.GetSignature(ctx, p); err == nil {
			rec.Signature = &sig
		}
		if profile, err := s.GetChaosProfile(ctx, p); err == nil {
			rec.ChaosProfile = profile
		}
		out[p] = rec
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
