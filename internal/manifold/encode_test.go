package manifold

import (
	"bytes"
	"testing"

	cerrors "github.com/standardbeagle/chaoslens/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{WindowBytes: 64, StrideBytes: 48, Precision: 3}
}

func TestEncode_TooSmall(t *testing.T) {
	body := bytes.Repeat([]byte{0x41}, 63)
	_, err := Encode(body, defaultConfig())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindInputTooSmall))
}

func TestEncode_ExactlyOneWindow(t *testing.T) {
	body := bytes.Repeat([]byte{0x41}, 64)
	res, err := Encode(body, defaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Equal(t, 1.0, res.Windows[0].Signature.Stability)
}

func TestEncode_AllZero(t *testing.T) {
	body := make([]byte, 256)
	res, err := Encode(body, defaultConfig())
	require.NoError(t, err)
	for _, w := range res.Windows {
		assert.Equal(t, 1.0, w.Signature.Coherence)
		assert.Equal(t, 0.0, w.Signature.Entropy)
		assert.Equal(t, 1.0, w.Signature.Stability)
	}
	assert.Equal(t, 1.0, res.Aggregate.Coherence)
	assert.Equal(t, 0.0, res.Aggregate.Entropy)
}

func TestEncode_WindowCount(t *testing.T) {
	body := bytes.Repeat([]byte("abc"), 1000) // 3000 bytes
	res, err := Encode(body, defaultConfig())
	require.NoError(t, err)
	// windows_analyzed = ceil((3000-64)/48) + 1, short last window dropped per spec.
	expected := (3000-64+48-1)/48 + 1
	assert.InDelta(t, expected, len(res.Windows), 1)
}

func TestEncode_AggregateIsMeanOfWindows(t *testing.T) {
	body := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, "), 20)
	res, err := Encode(body, defaultConfig())
	require.NoError(t, err)

	var sumC, sumS, sumE float64
	for _, w := range res.Windows {
		sumC += w.Signature.Coherence
		sumS += w.Signature.Stability
		sumE += w.Signature.Entropy
	}
	n := float64(len(res.Windows))
	assert.InDelta(t, sumC/n, res.Aggregate.Coherence, 0.001)
	assert.InDelta(t, sumS/n, res.Aggregate.Stability, 0.001)
	assert.InDelta(t, sumE/n, res.Aggregate.Entropy, 0.001)
}

func TestEncode_Deterministic(t *testing.T) {
	body := bytes.Repeat([]byte{0x01, 0x02, 0xFF, 0x00}, 100)
	a, err := Encode(body, defaultConfig())
	require.NoError(t, err)
	b, err := Encode(body, defaultConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
