package ingestion

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/depgraph"
	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Outcome classifies how Pipeline.Process handled one file, for the
// ingest summary's per-category counters (spec §4.4).
type Outcome int

const (
	OutcomeSignature Outcome = iota
	OutcomeBinary
	OutcomeTooSmall
)

// Pipeline runs the per-file C1 -> C2 chain the watcher and the batch
// ingester both drive.
type Pipeline struct {
	ManifoldCfg manifold.Config
	ChaosCfg    chaos.Config
	LiteGlobs   []string
	Extractor   depgraph.ImportExtractor
}

// NewPipeline constructs a Pipeline.
func NewPipeline(manifoldCfg manifold.Config, chaosCfg chaos.Config, liteGlobs []string, extractor depgraph.ImportExtractor) *Pipeline {
	return &Pipeline{ManifoldCfg: manifoldCfg, ChaosCfg: chaosCfg, LiteGlobs: liteGlobs, Extractor: extractor}
}

// Process runs C1 (and, unless path is in lite mode, C2) over body and
// returns the resulting record. Binary bodies and bodies shorter than one
// window are not errors (spec §7 kinds 1-2); they come back as records
// with no signature, tagged by Outcome.
func (p *Pipeline) Process(path string, body []byte, modTime time.Time) (*types.FileRecord, Outcome, error) {
	rec := &types.FileRecord{
		Path:       path,
		Body:       body,
		SizeBytes:  int64(len(body)),
		ModifiedAt: modTime,
	}

	if isBinaryContent(body) {
		rec.IsText = false
		return rec, OutcomeBinary, nil
	}
	rec.IsText = true

	if p.Extractor != nil {
		if imports := p.Extractor.ExtractImports(path, body); len(imports) > 0 {
			rec.Imports = imports
		}
	}

	encoded, err := manifold.Encode(body, p.ManifoldCfg)
	if err != nil {
		if cerrors.Is(err, cerrors.KindInputTooSmall) {
			return rec, OutcomeTooSmall, nil
		}
		return nil, 0, err
	}
	sig := encoded.Aggregate
	rec.Signature = &sig

	if !p.isLite(path) {
		profile := chaos.Analyze(encoded, p.ChaosCfg)
		rec.ChaosProfile = &profile
	}

	return rec, OutcomeSignature, nil
}

func (p *Pipeline) isLite(path string) bool {
	for _, pattern := range p.LiteGlobs {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
