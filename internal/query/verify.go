package query

import (
	"context"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/manifold"
)

// VerifyResult is the return value of verify_snippet.
type VerifyResult struct {
	RawMatchRatio float64
	SafeCoverage  float64
	TotalWindows  int
	Verified      bool
}

// snippetTolerance is the fixed component-wise tolerance spec §4.7 gives
// verify_snippet for its per-window neighbor queries.
const snippetTolerance = 0.05

// VerifySnippet re-runs C1+C2 on snippet, then for each window asks C3 for
// files whose signature lies within tolerance of it. raw_match_ratio is the
// fraction of windows with at least one match anywhere in scopeGlob;
// safe_coverage restricts that to windows whose hazard signal exceeds the
// snippet's own hazard threshold (the "gated" windows spec §4.7 specifies).
// The snippet is verified iff safe_coverage >= coverageThreshold.
func (s *Surface) VerifySnippet(ctx context.Context, snippet []byte, coverageThreshold float64, scopeGlob string) (VerifyResult, error) {
	result, err := manifold.Encode(snippet, s.ManifoldCfg)
	if err != nil {
		return VerifyResult{}, err
	}

	v := chaos.WindowLogVariance(result)
	signal := chaos.HazardSignal(v, s.ChaosCfg.HazardCenter)
	theta := chaos.HazardThreshold(v, s.ChaosCfg.HazardCenter, s.ChaosCfg.HazardPercentile)

	total := len(result.Windows)
	if total == 0 {
		return VerifyResult{}, nil
	}

	matched := 0
	gatedHits := 0
	for i, w := range result.Windows {
		neighbors, err := s.Store.Neighbors(ctx, w.Signature, snippetTolerance, scopeGlob, 1)
		if err != nil {
			continue
		}
		hit := len(neighbors) > 0
		if hit {
			matched++
		}
		if signal[i] > theta && hit {
			gatedHits++
		}
	}

	raw := float64(matched) / float64(total)
	safe := float64(gatedHits) / float64(total)

	return VerifyResult{
		RawMatchRatio: raw,
		SafeCoverage:  safe,
		TotalWindows:  total,
		Verified:      safe >= coverageThreshold,
	}, nil
}
