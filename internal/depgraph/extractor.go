package depgraph

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ImportExtractor is the pluggable collaborator spec §4.5 delegates token
// extraction to. Only the graph semantics in graph.go are specified;
// implementations of this interface are free to be as precise or as
// heuristic as they like.
type ImportExtractor interface {
	// ExtractImports returns the set of module names a file body references.
	ExtractImports(path string, body []byte) map[string]struct{}
	// PathToModule maps a file path to the module name other files would
	// reference to import it. Returns ok=false if the path has no module
	// identity (e.g. a binary file or a fact).
	PathToModule(path string) (string, bool)
}

var importPatterns = map[string][]*regexp.Regexp{
	".go": {
		regexp.MustCompile(`import\s+"([^"]+)"`),
		regexp.MustCompile(`import\s+\w+\s+"([^"]+)"`),
		regexp.MustCompile(`(?m)^\s*"([^"]+)"\s*$`),
	},
	".js": {
		regexp.MustCompile(`from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	},
	".py": {
		regexp.MustCompile(`from\s+([.\w]+)\s+import`),
		regexp.MustCompile(`import\s+([.\w]+)`),
	},
	".rs": {
		regexp.MustCompile(`use\s+([\w:]+)`),
	},
}

func init() {
	importPatterns[".ts"] = importPatterns[".js"]
	importPatterns[".tsx"] = importPatterns[".js"]
	importPatterns[".jsx"] = importPatterns[".js"]
}

// RegexExtractor is the default ImportExtractor. It recognizes a handful of
// mainstream languages by extension and returns the raw module specifiers it
// finds; Graph.Rebuild resolves them to repo-relative paths, and a specifier
// that resolves to nothing is a no-op for the graph (spec §4.5's
// "delegated to a pluggable extractor" clause allows this kind of
// best-effort implementation).
type RegexExtractor struct{}

// NewRegexExtractor constructs the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractImports implements ImportExtractor.
func (RegexExtractor) ExtractImports(path string, body []byte) map[string]struct{} {
	ext := strings.ToLower(filepath.Ext(path))
	patterns, ok := importPatterns[ext]
	if !ok {
		return nil
	}
	out := make(map[string]struct{})
	text := string(body)
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			spec := strings.TrimSpace(m[1])
			if spec == "" {
				continue
			}
			out[spec] = struct{}{}
		}
	}
	return out
}

// PathToModule implements ImportExtractor. The module name for a path is
// its extension-stripped form ("pkg/util.go" -> "pkg/util"). Matching by
// bare file stem, so that "./util" or "util" also reach "pkg/util.go", is
// done by the graph's resolveModule, not here.
func (RegexExtractor) PathToModule(path string) (string, bool) {
	ext := filepath.Ext(path)
	if _, ok := importPatterns[strings.ToLower(ext)]; !ok {
		return "", false
	}
	return strings.TrimSuffix(path, ext), true
}
