// Package ingestion implements C4, the ingestion coordinator: it walks a
// repository, runs each file through C1->C2, writes the result to C3, and
// keeps a watcher live to repeat the same pipeline on filesystem changes.
package ingestion

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/chaoslens/internal/config"
	"github.com/standardbeagle/chaoslens/internal/debug"
	"github.com/standardbeagle/chaoslens/internal/depgraph"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
)

const factPathPrefix = "__fact__/"

// LastIngestFactID is the fact record key the status surface reads to
// report the most recent ingest summary (spec §6 "Observable outputs").
const LastIngestFactID = "last_ingest"

// Coordinator owns the worker pool that drives Pipeline against Walker's
// output and writes results to Store, invalidating Graph afterward.
type Coordinator struct {
	Walker   *Walker
	Pipeline *Pipeline
	Store    store.Store
	Graph    *depgraph.Graph
	Cfg      config.Index

	hashMu        sync.Mutex
	contentHashes map[string]uint64
}

// New constructs a Coordinator.
func New(walker *Walker, pipeline *Pipeline, st store.Store, g *depgraph.Graph, cfg config.Index) *Coordinator {
	return &Coordinator{
		Walker:        walker,
		Pipeline:      pipeline,
		Store:         st,
		Graph:         g,
		Cfg:           cfg,
		contentHashes: make(map[string]uint64),
	}
}

func (c *Coordinator) workerCount() int {
	n := c.Cfg.WorkerCap
	if n <= 0 {
		n = 8
	}
	if cpu := runtime.NumCPU(); cpu < n {
		n = cpu
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (c *Coordinator) storeTimeout() time.Duration {
	if c.Cfg.StoreTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Cfg.StoreTimeoutMs) * time.Millisecond
}

// tally accumulates the per-file outcomes of a run under a single mutex;
// Coordinator's worker pool calls into it concurrently.
type tally struct {
	mu       sync.Mutex
	summary  types.IngestSummary
	chaosSum float64
}

func (t *tally) recordBinary(size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.BinaryFiles++
	t.summary.TotalBytes += size
}

func (t *tally) recordTooSmall(size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.TextFiles++
	t.summary.TotalBytes += size
	t.summary.Skipped++
}

func (t *tally) recordSkippedTooLarge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Skipped++
}

func (t *tally) recordError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Errors++
}

func (t *tally) recordSignature(size int64, profile *types.ChaosProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.TextFiles++
	t.summary.TotalBytes += size
	t.summary.Signatures++
	if profile != nil {
		t.chaosSum += profile.ChaosScore
		if profile.RiskClass == types.RiskHigh {
			t.summary.HighRiskCount++
		}
	}
}

// clearExisting deletes every file-backed path currently in Store (facts
// are left untouched), implementing ingest's clear_first option.
func (c *Coordinator) clearExisting(ctx context.Context) error {
	paths, err := c.Store.ListPaths(ctx, "*")
	if err != nil {
		return err
	}
	for _, p := range paths {
		if strings.HasPrefix(p, factPathPrefix) {
			continue
		}
		if err := c.Store.DeleteFile(ctx, p); err != nil {
			return err
		}
		c.forgetHash(p)
	}
	return nil
}

// unchangedSince hashes body and reports whether the hash equals the one
// last remembered for path. It does not store the new hash; processOne calls
// rememberHash once the file has been written. Only signature outcomes are
// cached: binary/too-small classification is cheap enough to redo, so there
// is nothing worth skipping there.
func (c *Coordinator) unchangedSince(path string, body []byte) (uint64, bool) {
	hash := xxhash.Sum64(body)
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	prev, seen := c.contentHashes[path]
	return hash, seen && prev == hash
}

func (c *Coordinator) rememberHash(path string, hash uint64) {
	c.hashMu.Lock()
	c.contentHashes[path] = hash
	c.hashMu.Unlock()
}

// forgetHash drops path's cached content hash so a later re-creation under
// the same path is treated as a fresh file rather than an unchanged one.
func (c *Coordinator) forgetHash(path string) {
	c.hashMu.Lock()
	delete(c.contentHashes, path)
	c.hashMu.Unlock()
}

// processOne reads, pipelines, and persists a single path, recording its
// outcome into t. A bad file never fails the batch (spec §7 "per-file
// isolation during ingest"). Re-encoding is skipped when the file's content
// hash matches what was last seen for its path (spec §6 watcher-churn
// dedup): the existing chaos profile is replayed into the tally without
// touching C1/C2 or re-writing the store record.
func (c *Coordinator) processOne(ctx context.Context, path string, t *tally) {
	body, info, err := c.Walker.ReadCapped(path)
	if err != nil {
		if err == errTooLarge {
			t.recordSkippedTooLarge()
		} else {
			t.recordError()
			debug.LogIngestion("read failed for %s: %v\n", path, err)
		}
		return
	}

	hash, unchanged := c.unchangedSince(path, body)
	if unchanged {
		profile, _ := c.Store.GetChaosProfile(ctx, path)
		t.recordSignature(int64(len(body)), profile)
		debug.LogIngestion("skip %s: content hash unchanged\n", path)
		return
	}

	rec, outcome, err := c.Pipeline.Process(path, body, info.ModTime())
	if err != nil {
		t.recordError()
		debug.LogIngestion("pipeline failed for %s: %v\n", path, err)
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout())
	err = c.Store.PutFile(storeCtx, rec)
	cancel()
	if err != nil {
		t.recordError()
		debug.LogIngestion("put_file failed for %s: %v\n", path, err)
		return
	}

	switch outcome {
	case OutcomeBinary:
		t.recordBinary(rec.SizeBytes)
	case OutcomeTooSmall:
		t.recordTooSmall(rec.SizeBytes)
	case OutcomeSignature:
		t.recordSignature(rec.SizeBytes, rec.ChaosProfile)
		c.rememberHash(path, hash)
	}
}

// Ingest walks Walker.Root, pipelines every discovered file through a
// bounded worker pool, and returns a summary record (spec §4.4). When ctx
// is cancelled mid-run, already-committed files stay committed and the
// summary is returned with Cancelled set.
func (c *Coordinator) Ingest(ctx context.Context, clearFirst bool) (types.IngestSummary, error) {
	start := time.Now()

	if clearFirst {
		if err := c.clearExisting(ctx); err != nil {
			return types.IngestSummary{}, err
		}
	}

	paths, err := c.Walker.Walk()
	if err != nil {
		return types.IngestSummary{}, err
	}

	t := &tally{}
	workers := c.workerCount()
	jobs := make(chan string, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				c.processOne(ctx, path, t)
			}
		}()
	}

	cancelled := false
feed:
	for _, p := range paths {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()

	if c.Graph != nil {
		c.Graph.Invalidate()
	}

	t.mu.Lock()
	summary := t.summary
	chaosSum := t.chaosSum
	t.mu.Unlock()

	if summary.Signatures > 0 {
		summary.AvgChaos = chaosSum / float64(summary.Signatures)
	}
	summary.ElapsedMs = time.Since(start).Milliseconds()
	summary.Cancelled = cancelled || ctx.Err() != nil

	debug.LogIngestion("ingest complete: text=%d binary=%d signatures=%d skipped=%d errors=%d elapsed_ms=%d\n",
		summary.TextFiles, summary.BinaryFiles, summary.Signatures, summary.Skipped, summary.Errors, summary.ElapsedMs)

	if encoded, err := json.Marshal(summary); err == nil {
		factCtx, factCancel := context.WithTimeout(context.Background(), c.storeTimeout())
		if err := c.Store.PutFact(factCtx, LastIngestFactID, string(encoded)); err != nil {
			debug.LogIngestion("failed to persist last-ingest fact: %v\n", err)
		}
		factCancel()
	}

	return summary, nil
}
