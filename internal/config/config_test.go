package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKDL(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".chaoslens.kdl"), []byte(content), 0644))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Project.Root)
	assert.Equal(t, 64, cfg.Encoder.WindowBytes)
	assert.Equal(t, 48, cfg.Encoder.StrideBytes)
	assert.Equal(t, 0.75, cfg.Chaos.HazardPercentile)
	assert.Equal(t, "abs", cfg.Chaos.HazardCenter)
	assert.Equal(t, int64(512000), cfg.Index.MaxBytesPerFile)
	assert.Equal(t, 8, cfg.Index.WorkerCap)
	assert.Equal(t, "127.0.0.1:6379", cfg.Store.Addr)
}

func TestLoad_OverlayEncoderAndChaos(t *testing.T) {
	root := t.TempDir()
	writeKDL(t, root, `
encoder {
    window_bytes 128
    stride_bytes 96
}
chaos {
    hazard_percentile 0.9
    hazard_center "median"
}
`)
	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Encoder.WindowBytes)
	assert.Equal(t, 96, cfg.Encoder.StrideBytes)
	assert.Equal(t, 3, cfg.Encoder.SignaturePrecision, "untouched fields keep their default")
	assert.Equal(t, 0.9, cfg.Chaos.HazardPercentile)
	assert.Equal(t, "median", cfg.Chaos.HazardCenter)
	assert.Equal(t, 0.35, cfg.Chaos.HighThreshold, "untouched fields keep their default")
}

func TestLoad_OverlayIndexGlobsAndExclude(t *testing.T) {
	root := t.TempDir()
	writeKDL(t, root, `
index {
    worker_cap 2
    watch_debounce_ms 500
    lite_globs "**/*.spec.ts" "**/fixtures/**"
    exclude "**/.git/**" "**/dist/**"
}
`)
	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Index.WorkerCap)
	assert.Equal(t, 500, cfg.Index.WatchDebounceMs)
	assert.Equal(t, []string{"**/*.spec.ts", "**/fixtures/**"}, cfg.Index.LiteGlobs)
	assert.Equal(t, []string{"**/.git/**", "**/dist/**"}, cfg.Index.Exclude)
}

func TestLoad_OverlayRiskAndStore(t *testing.T) {
	root := t.TempDir()
	writeKDL(t, root, `
risk {
    chaos_weight 0.5
    blast_weight 0.25
    churn_weight 0.25
    is_core_min 20
}
store {
    addr "redis.internal:6380"
    db 3
    key_prefix "clx:"
}
`)
	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Risk.ChaosWeight)
	assert.Equal(t, 0.25, cfg.Risk.BlastWeight)
	assert.Equal(t, 0.25, cfg.Risk.ChurnWeight)
	assert.Equal(t, 20, cfg.Risk.IsCoreMin)
	assert.Equal(t, "redis.internal:6380", cfg.Store.Addr)
	assert.Equal(t, 3, cfg.Store.DB)
	assert.Equal(t, "clx:", cfg.Store.KeyPrefix)
}

func TestLoad_MalformedKDLReturnsError(t *testing.T) {
	root := t.TempDir()
	writeKDL(t, root, `encoder { window_bytes 128 `)
	_, err := Load(root)
	assert.Error(t, err)
}

func TestLoad_ProjectRootOverlay(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(root, "elsewhere")
	writeKDL(t, root, `project {
    root "`+other+`"
}`)
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.Project.Root)
}
