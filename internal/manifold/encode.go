// Package manifold implements C1, the byte-stream manifold encoder: windowed
// variance and byte entropy over a byte body, rounded into the three-metric
// signature (coherence, stability, entropy) spec §4.1 defines. Log-scaling
// of the variance happens downstream in package chaos. The encoder
// is a pure function of its input bytes and config; it performs no I/O and
// makes no claim about the semantics of the language the bytes encode.
package manifold

import (
	"math"

	"github.com/standardbeagle/chaoslens/internal/debug"
	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/standardbeagle/chaoslens/internal/types"
)

// Config carries the three encoder parameters of spec §6.
type Config struct {
	WindowBytes int
	StrideBytes int
	Precision   int
}

// uniformByteVariance is the variance of a uniform byte distribution
// (255^2/12), used as the coherence normalizer in spec §3.
const uniformByteVariance = 255.0 * 255.0 / 12.0

// Result is the full output of Encode: every window signature plus the
// file-level aggregate (spec §3 "Aggregate file signature").
type Result struct {
	Windows   []types.WindowSignature
	Aggregate types.Signature
}

// Encode runs the windowed variance/entropy -> rounded signature pipeline of
// spec §4.1 over body. It returns errors.InputTooSmall when body is shorter
// than one window.
func Encode(body []byte, cfg Config) (Result, error) {
	w := int64(cfg.WindowBytes)
	s := int64(cfg.StrideBytes)
	if int64(len(body)) < w {
		return Result{}, cerrors.InputTooSmall("encode", "", int64(len(body)), w)
	}

	var windows []types.WindowSignature
	var sumC, sumS, sumE float64
	prevC := 0.0

	for offset := int64(0); ; offset += s {
		end := offset + w
		if end > int64(len(body)) {
			remaining := int64(len(body)) - offset
			if remaining < w/2 {
				break
			}
			end = int64(len(body))
		}

		window := body[offset:end]
		c, e := windowCoherenceEntropy(window)
		var stability float64
		if len(windows) == 0 {
			stability = 1
		} else {
			stability = clamp01(1 - absf(c-prevC))
		}
		prevC = c

		rc := roundHalfEven(c, cfg.Precision)
		rs := roundHalfEven(stability, cfg.Precision)
		re := roundHalfEven(e, cfg.Precision)

		windows = append(windows, types.WindowSignature{
			Offset: offset,
			Signature: types.Signature{
				Coherence: rc,
				Stability: rs,
				Entropy:   re,
			},
		})

		sumC += rc
		sumS += rs
		sumE += re

		if end == int64(len(body)) {
			break
		}
	}

	n := float64(len(windows))
	agg := types.Signature{
		Coherence: roundHalfEven(sumC/n, cfg.Precision),
		Stability: roundHalfEven(sumS/n, cfg.Precision),
		Entropy:   roundHalfEven(sumE/n, cfg.Precision),
	}

	debug.LogManifold("encoded %d bytes into %d windows, aggregate=%s\n", len(body), len(windows), agg.String())

	return Result{Windows: windows, Aggregate: agg}, nil
}

// windowCoherenceEntropy computes the unrounded coherence and entropy of a
// single window using fixed-width integer accumulators for the histogram,
// per spec §4.1's determinism requirement.
func windowCoherenceEntropy(window []byte) (coherence, entropy float64) {
	var hist [256]uint32
	var sum, sumSq int64

	for _, b := range window {
		hist[b]++
		v := int64(b)
		sum += v
		sumSq += v * v
	}

	n := float64(len(window))
	mean := float64(sum) / n
	variance := float64(sumSq)/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	coherence = clamp01(1 - variance/uniformByteVariance)

	var bits float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		bits -= p * math.Log2(p)
	}
	entropy = clamp01(bits / 8)

	return coherence, entropy
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
