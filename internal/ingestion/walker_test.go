package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalker_SkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(t, root, "vendor/pkg/file.go", "package pkg\n")

	w := &Walker{Root: root, Exclude: []string{"node_modules/**", "vendor/**"}}
	paths, err := w.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestWalker_ReadCappedRejectsOversizedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", "0123456789")

	w := &Walker{Root: root, MaxBytesPerFile: 5}
	_, _, err := w.ReadCapped("big.txt")
	assert.ErrorIs(t, err, errTooLarge)
}

func TestWalker_ReadCappedReturnsBody(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "hello")

	w := &Walker{Root: root, MaxBytesPerFile: 512000}
	body, info, err := w.ReadCapped("small.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), info.Size())
}
