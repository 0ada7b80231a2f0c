// Package risk implements C6, the risk composer: it combines chaos scores
// from C2 (via C3) with blast radius from C5 and externally supplied churn
// into a single combined_risk score and risk class.
package risk

import (
	"context"
	"sort"

	"github.com/standardbeagle/chaoslens/internal/depgraph"
	"github.com/standardbeagle/chaoslens/internal/store"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Weights are the combined_risk linear coefficients (spec §4.6 default
// 0.4/0.3/0.3, overridable via config).
type Weights struct {
	Chaos float64
	Blast float64
	Churn float64
}

// Bands are the risk-class cutoffs; combined_risk is classified into the
// highest band it meets.
type Bands struct {
	Critical float64
	High     float64
	Moderate float64
}

// Composer is C6.
type Composer struct {
	Store    store.Store
	Graph    *depgraph.Graph
	Churn    ChurnProvider
	Weights  Weights
	Bands    Bands
	BlastCap float64
}

// New constructs a Composer. blastCap is the denominator combined_risk
// divides blast_radius by before clamping to 1 (spec default 50).
func New(st store.Store, g *depgraph.Graph, churn ChurnProvider, weights Weights, bands Bands, blastCap float64) *Composer {
	return &Composer{Store: st, Graph: g, Churn: churn, Weights: weights, Bands: bands, BlastCap: blastCap}
}

// classify maps a combined_risk score to its risk class using the
// configured bands (spec §4.6: CRITICAL ≥ 0.40, HIGH ≥ 0.30, MODERATE ≥
// 0.20, else LOW).
func (c *Composer) classify(score float64) types.CombinedRiskClass {
	switch {
	case score >= c.Bands.Critical:
		return types.CombinedCritical
	case score >= c.Bands.High:
		return types.CombinedHigh
	case score >= c.Bands.Moderate:
		return types.CombinedModerate
	default:
		return types.CombinedLow
	}
}

// CombinedRisk computes combined_risk(path) and its risk class.
func (c *Composer) CombinedRisk(ctx context.Context, path string) (types.CombinedRisk, error) {
	var chaos float64
	if profile, err := c.Store.GetChaosProfile(ctx, path); err == nil && profile != nil {
		chaos = profile.ChaosScore
	}

	blastRatio := 0.0
	if c.Graph != nil {
		br, err := c.Graph.BlastRadius(ctx, c.Store, path, 1<<30)
		if err == nil {
			blastRatio = float64(br.Size) / c.BlastCap
			if blastRatio > 1 {
				blastRatio = 1
			}
		}
	}

	churn := 0.0
	if c.Churn != nil {
		if v, err := c.Churn.Churn(ctx, path); err == nil {
			churn = v
		}
	}

	score := c.Weights.Chaos*chaos + c.Weights.Blast*blastRatio + c.Weights.Churn*churn
	return types.CombinedRisk{
		Path:  path,
		Chaos: chaos,
		Blast: int(blastRatio * c.BlastCap),
		Churn: churn,
		Score: score,
		Class: c.classify(score),
	}, nil
}

// ScanCritical implements scan_critical: the top-limit files under
// scopeGlob with combined_risk >= minRisk, sorted descending by score and
// tie-broken by path.
func (c *Composer) ScanCritical(ctx context.Context, scopeGlob string, minRisk float64, limit int) ([]types.CombinedRisk, error) {
	paths, err := c.Store.ListPaths(ctx, scopeGlob)
	if err != nil {
		return nil, err
	}

	var results []types.CombinedRisk
	for _, path := range paths {
		cr, err := c.CombinedRisk(ctx, path)
		if err != nil {
			continue
		}
		if cr.Score >= minRisk {
			results = append(results, cr)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
