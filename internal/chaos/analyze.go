// Package chaos implements C2, the symbolic chaos analyzer: a three-state
// machine driven by 1-bit delta-sigma modulation of the per-window log
// variance signal from C1, yielding a persistence-based chaos score and a
// hazard threshold (spec §4.2).
package chaos

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/standardbeagle/chaoslens/internal/debug"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// epsilon suppresses zero-variance windows in the log scaling (spec §4.2 step 1).
const epsilon = 1e-9

// Config carries the C2 parameters of spec §6.
type Config struct {
	StateWindow      int
	HazardPercentile float64
	HighThreshold    float64
	// HazardCenter is "abs" (default) or "median"; see spec §9's open question.
	HazardCenter string
}

const uniformByteVariance = 255.0 * 255.0 / 12.0

// WindowLogVariance computes the per-window log-variance signal v that
// feeds the hazard threshold and delta-sigma modulator (spec §4.2 step 1).
// Exported so C7's verify_snippet can recompute gating without duplicating
// the formula.
func WindowLogVariance(result manifold.Result) []float64 {
	v := make([]float64, len(result.Windows))
	for i, w := range result.Windows {
		variance := (1 - w.Signature.Coherence) * uniformByteVariance
		v[i] = math.Log10(math.Max(variance, epsilon))
	}
	return v
}

// HazardSignal exposes the centered-or-absolute log-variance series the
// hazard threshold is computed over and windows are gated against.
func HazardSignal(v []float64, center string) []float64 {
	return hazardSignal(v, center)
}

// HazardThreshold computes the hazard threshold theta for a log-variance
// signal the same way Analyze does, given the configured centering mode and
// percentile.
func HazardThreshold(v []float64, center string, percentile float64) float64 {
	return hazardThreshold(hazardSignal(v, center), percentile)
}

// Analyze runs the variance-signal -> delta-sigma -> symbolic-state pipeline
// over the windows produced by manifold.Encode.
func Analyze(result manifold.Result, cfg Config) types.ChaosProfile {
	n := len(result.Windows)
	profile := types.ChaosProfile{
		Coherence:      result.Aggregate.Coherence,
		Entropy:        result.Aggregate.Entropy,
		WindowsAnalyzed: n,
		SymbolicStates: map[types.SymbolicState]int{},
	}
	if n == 0 {
		return profile
	}

	v := WindowLogVariance(result)

	signal := hazardSignal(v, cfg.HazardCenter)
	theta := hazardThreshold(signal, cfg.HazardPercentile)
	profile.HazardThreshold = theta

	bits := modulate(v, theta)
	states := classify(bits, cfg.StateWindow)

	highCount := 0
	for _, st := range states {
		profile.SymbolicStates[st]++
		if st == types.StatePersistentHigh {
			highCount++
		}
	}

	profile.ChaosScore = float64(highCount) / float64(n)
	if profile.ChaosScore >= cfg.HighThreshold {
		profile.RiskClass = types.RiskHigh
	} else {
		profile.RiskClass = types.RiskLow
	}

	debug.LogChaos("analyzed %d windows: chaos_score=%.3f risk=%s theta=%.4f\n",
		n, profile.ChaosScore, profile.RiskClass, theta)

	return profile
}

// hazardSignal builds the series the hazard threshold is computed over.
// "abs" takes |v|; "median" centers v against its median before taking the
// absolute value, the alternative spec §9 notes some source revisions use.
func hazardSignal(v []float64, center string) []float64 {
	out := make([]float64, len(v))
	if center == "median" {
		med := median(v)
		for i, x := range v {
			out[i] = math.Abs(x - med)
		}
		return out
	}
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

// hazardThreshold computes the p-th quantile of signal using linear
// interpolation between surrounding order statistics (spec §4.2 step 2).
// gonum/stat.Quantile is the value returned; montanaflynn/stats.Percentile
// is run alongside it purely as a cross-check against an independently
// implemented percentile algorithm, logged on divergence.
func hazardThreshold(signal []float64, p float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	sorted := append([]float64(nil), signal...)
	sort.Float64s(sorted)

	first := sorted[0]
	allEqual := true
	for _, x := range sorted {
		if x != first {
			allEqual = false
			break
		}
	}
	if allEqual {
		return first
	}

	theta := stat.Quantile(p, stat.LinInterp, sorted, nil)
	crossCheckHazardThreshold(sorted, p, theta)
	return theta
}

// crossCheckHazardThreshold recomputes the same percentile with
// montanaflynn/stats and logs any material divergence from gonum's answer.
// It never changes the returned threshold; it exists to catch a regression
// in either percentile implementation during development.
func crossCheckHazardThreshold(sorted []float64, p, theta float64) {
	alt, err := mstats.Percentile(sorted, p*100)
	if err != nil {
		return
	}
	if math.Abs(alt-theta) > 1e-6 {
		debug.LogChaos("hazard threshold cross-check diverged: gonum=%.6f montanaflynn=%.6f\n", theta, alt)
	}
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modulate runs the 1-bit delta-sigma integrator of spec §4.2 step 3.
func modulate(v []float64, theta float64) []int {
	bits := make([]int, len(v))
	integrator := 0.0
	for i, vi := range v {
		integrator += vi - theta
		bit := 0
		if integrator >= 0 {
			bit = 1
		}
		bits[i] = bit
		integrator -= float64(bit*2-1) * theta
	}
	return bits
}

// classify runs the three-state symbolic machine of spec §4.2 step 4 over a
// sliding window of the last K bits.
func classify(bits []int, k int) []types.SymbolicState {
	states := make([]types.SymbolicState, len(bits))
	state := types.StateLowFluctuation

	window := make([]int, 0, k)
	for i, b := range bits {
		window = append(window, b)
		if len(window) > k {
			window = window[len(window)-k:]
		}

		ones := 0
		for _, x := range window {
			ones += x
		}
		transitions := 0
		for j := 1; j < len(window); j++ {
			if window[j] != window[j-1] {
				transitions++
			}
		}

		// Early windows see fewer than K bits; the "persistent" threshold
		// scales down with the window actually observed so a short run of
		// all-1 bits at the start of a file can still read as H (spec §4.2
		// boundary case: a single-window file's state is H iff its one bit
		// is 1).
		effLen := len(window)

		switch {
		case effLen == 1:
			if ones == 1 {
				state = types.StatePersistentHigh
			} else {
				state = types.StateLowFluctuation
			}
		case ones >= effLen-1 && transitions <= 1:
			state = types.StatePersistentHigh
		case ones <= 1 && transitions <= 1:
			state = types.StateLowFluctuation
		default:
			state = types.StateOscillation
		}
		states[i] = state
	}
	return states
}
