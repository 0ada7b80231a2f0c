package ingestion

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker discovers the files C4 should ingest under Root, honoring the
// configured exclude globs. Walk does not apply the spec §6
// "max_bytes_per_file" boundary; ReadCapped enforces it when a file is read.
type Walker struct {
	Root            string
	Exclude         []string
	MaxBytesPerFile int64
}

// Walk returns root-relative, slash-separated paths of every regular file
// not pruned by an exclude pattern, in deterministic sorted order.
func (w *Walker) Walk() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == w.Root {
			return nil
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if w.excluded(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// excluded reports whether rel matches any configured exclude glob, applied
// both literally and with a trailing "/**" trimmed so directory-style
// patterns (e.g. "node_modules/**") prune at the directory boundary.
func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.Exclude {
		if ok, _ := doublestar.Match(pattern, strings.TrimSuffix(rel, "/")); ok {
			return true
		}
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if dirPattern != pattern && strings.HasPrefix(rel, dirPattern+"/") {
			return true
		}
		if base := filepath.Base(strings.TrimSuffix(rel, "/")); base != "" {
			if ok, _ := doublestar.Match(dirPattern, base); ok {
				return true
			}
		}
	}
	return false
}

// ReadCapped reads a file's body, refusing anything over MaxBytesPerFile
// (spec §6 default 512000) to bound per-file memory use.
func (w *Walker) ReadCapped(relPath string) ([]byte, os.FileInfo, error) {
	abs := filepath.Join(w.Root, filepath.FromSlash(relPath))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, err
	}
	if w.MaxBytesPerFile > 0 && info.Size() > w.MaxBytesPerFile {
		return nil, info, errTooLarge
	}
	body, err := os.ReadFile(abs)
	if err != nil {
		return nil, info, err
	}
	return body, info, nil
}
