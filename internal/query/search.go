// Package query implements C7, the read-only query surface: substring
// search, snippet verification against the structural index, and
// signature-space clustering.
package query

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/chaoslens/internal/chaos"
	"github.com/standardbeagle/chaoslens/internal/manifold"
	"github.com/standardbeagle/chaoslens/internal/store"
)

// regexMetachars is the set of characters that, if present in a search
// query, cause it to be interpreted as a regular expression rather than a
// literal substring (spec §4.7).
const regexMetachars = `.*+?()[]{}|^$\`

// SearchHit is one match of search_substring.
type SearchHit struct {
	Path    string
	Line    int
	Context []string
	Match   string
}

// SearchResult is the return value of search_substring.
type SearchResult struct {
	Hits  []SearchHit
	Total int
}

// looksLikeRegex reports whether query contains any regex metacharacter.
func looksLikeRegex(query string) bool {
	return strings.ContainsAny(query, regexMetachars)
}

// SearchSubstring scans the bodies of files matching fileGlob for query,
// returning up to limit hits with +/-2 lines of context and the total
// match count across the corpus.
func (s *Surface) SearchSubstring(ctx context.Context, query, fileGlob string, caseSensitive bool, limit int) (SearchResult, error) {
	paths, err := s.Store.ListPaths(ctx, fileGlob)
	if err != nil {
		return SearchResult{}, err
	}

	var matcher func(line string) []int // returns [start,end) of first match, or nil
	if looksLikeRegex(query) {
		flags := ""
		if !caseSensitive {
			flags = "(?i)"
		}
		re, err := regexp.Compile(flags + query)
		if err != nil {
			return SearchResult{}, err
		}
		matcher = func(line string) []int {
			loc := re.FindStringIndex(line)
			return loc
		}
	} else {
		needle := query
		if !caseSensitive {
			needle = strings.ToLower(query)
		}
		matcher = func(line string) []int {
			haystack := line
			if !caseSensitive {
				haystack = strings.ToLower(line)
			}
			idx := strings.Index(haystack, needle)
			if idx < 0 {
				return nil
			}
			return []int{idx, idx + len(needle)}
		}
	}

	result := SearchResult{}
	for _, path := range paths {
		body, err := s.Store.GetFile(ctx, path)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
		for i, line := range lines {
			loc := matcher(line)
			if loc == nil {
				continue
			}
			result.Total++
			if limit > 0 && len(result.Hits) >= limit {
				continue
			}
			result.Hits = append(result.Hits, SearchHit{
				Path:    path,
				Line:    i + 1,
				Context: contextLines(lines, i, 2),
				Match:   line[loc[0]:loc[1]],
			})
		}
	}
	return result, nil
}

// contextLines returns lines[i-n:i+n+1] clamped to bounds.
func contextLines(lines []string, i, n int) []string {
	start := i - n
	if start < 0 {
		start = 0
	}
	end := i + n + 1
	if end > len(lines) {
		end = len(lines)
	}
	return append([]string(nil), lines[start:end]...)
}

// Surface is C7. It is read-only and safe for concurrent use; all state it
// touches belongs to the components it wraps. ManifoldCfg and ChaosCfg
// configure the C1+C2 pipeline verify_snippet reruns on each snippet.
type Surface struct {
	Store       store.Store
	ManifoldCfg manifold.Config
	ChaosCfg    chaos.Config
}

// New constructs a query Surface over st.
func New(st store.Store, manifoldCfg manifold.Config, chaosCfg chaos.Config) *Surface {
	return &Surface{Store: st, ManifoldCfg: manifoldCfg, ChaosCfg: chaosCfg}
}
