package ingestion

import (
	"bytes"
	"testing"
	"time"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/depgraph"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(liteGlobs []string) *Pipeline {
	return NewPipeline(
		manifold.Config{WindowBytes: 64, StrideBytes: 48, Precision: 3},
		chaos.Config{StateWindow: 5, HazardPercentile: 0.75, HighThreshold: 0.35, HazardCenter: "abs"},
		liteGlobs,
		depgraph.NewRegexExtractor(),
	)
}

func TestPipeline_BinaryBodyIsNotAnError(t *testing.T) {
	p := testPipeline(nil)
	body := append([]byte{0x89, 0x50, 0x4E, 0x47}, bytes.Repeat([]byte{0}, 100)...)

	rec, outcome, err := p.Process("image.png", body, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBinary, outcome)
	assert.False(t, rec.IsText)
	assert.Nil(t, rec.Signature)
}

func TestPipeline_TooSmallIsNotAnError(t *testing.T) {
	p := testPipeline(nil)
	rec, outcome, err := p.Process("tiny.go", []byte("short"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTooSmall, outcome)
	assert.Nil(t, rec.Signature)
}

func TestPipeline_SignatureComputedForOrdinaryFile(t *testing.T) {
	p := testPipeline(nil)
	body := bytes.Repeat([]byte("abc"), 1000)
	rec, outcome, err := p.Process("main.go", body, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSignature, outcome)
	require.NotNil(t, rec.Signature)
	require.NotNil(t, rec.ChaosProfile)
}

func TestPipeline_LiteGlobSkipsChaos(t *testing.T) {
	p := testPipeline([]string{"**/*_test.go"})
	body := bytes.Repeat([]byte("abc"), 1000)
	rec, outcome, err := p.Process("pkg/foo_test.go", body, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSignature, outcome)
	require.NotNil(t, rec.Signature)
	assert.Nil(t, rec.ChaosProfile)
}
