// Package types holds the tagged records shared across the encoder, the
// chaos analyzer, the structural index, and the query surface. Nothing in
// this package performs I/O; it exists so that component boundaries pass
// fixed-shape records instead of ad-hoc maps.
package types

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// SignaturePrecision is the default number of fractional digits (P) a
// signature component is rounded to.
const SignaturePrecision = 3

// Signature is the triple (coherence, stability, entropy) that summarizes a
// window or a whole file, each component in [0, 1].
type Signature struct {
	Coherence float64
	Stability float64
	Entropy   float64
}

var signaturePattern = regexp.MustCompile(`^c[01]\.\d+_s[01]\.\d+_e[01]\.\d+$`)

// String renders the canonical "c<C>_s<S>_e<E>" form at SignaturePrecision.
func (s Signature) String() string {
	return s.Canonical(SignaturePrecision)
}

// Canonical renders the signature with exactly prec fractional digits.
func (s Signature) Canonical(prec int) string {
	return fmt.Sprintf("c%s_s%s_e%s",
		formatUnit(s.Coherence, prec),
		formatUnit(s.Stability, prec),
		formatUnit(s.Entropy, prec))
}

func formatUnit(v float64, prec int) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// ParseSignature parses a canonical signature string, validating it against
// the grammar in spec §6: ^c[01]\.\d+_s[01]\.\d+_e[01]\.\d+$.
func ParseSignature(s string) (Signature, error) {
	if !signaturePattern.MatchString(s) {
		return Signature{}, fmt.Errorf("invalid signature syntax: %q", s)
	}
	var c, st, e float64
	_, err := fmt.Sscanf(s, "c%f_s%f_e%f", &c, &st, &e)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature syntax: %q: %w", s, err)
	}
	return Signature{Coherence: c, Stability: st, Entropy: e}, nil
}

// Delta is the component-wise distance between two signatures, used by the
// neighborhood search (spec §4.3).
type Delta struct {
	DC, DS, DE float64
}

// Within reports whether every component of d is within tolerance.
func (d Delta) Within(tolerance float64) bool {
	return absf(d.DC) <= tolerance && absf(d.DS) <= tolerance && absf(d.DE) <= tolerance
}

// Magnitude is the Euclidean norm of the delta, used to rank neighbors.
func (d Delta) Magnitude() float64 {
	return math.Sqrt(d.DC*d.DC + d.DS*d.DS + d.DE*d.DE)
}

// ComponentDelta computes the per-component delta between two signatures.
func ComponentDelta(a, b Signature) Delta {
	return Delta{
		DC: a.Coherence - b.Coherence,
		DS: a.Stability - b.Stability,
		DE: a.Entropy - b.Entropy,
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
