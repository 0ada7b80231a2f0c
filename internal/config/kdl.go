package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// loadKDL parses "<root>/.chaoslens.kdl" into a Config overlay. It returns
// (nil, nil) when the file does not exist.
func loadKDL(root string) (*Config, error) {
	path := filepath.Join(root, ".chaoslens.kdl")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := Default()
	cfg.Project.Root = root

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
			}
		case "encoder":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "window_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Encoder.WindowBytes = v
					}
				case "stride_bytes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Encoder.StrideBytes = v
					}
				case "signature_precision":
					if v, ok := firstIntArg(cn); ok {
						cfg.Encoder.SignaturePrecision = v
					}
				}
			}
		case "chaos":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "state_window":
					if v, ok := firstIntArg(cn); ok {
						cfg.Chaos.StateWindow = v
					}
				case "hazard_percentile":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Chaos.HazardPercentile = v
					}
				case "high_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Chaos.HighThreshold = v
					}
				case "hazard_center":
					if s, ok := firstStringArg(cn); ok {
						cfg.Chaos.HazardCenter = s
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_bytes_per_file":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxBytesPerFile = int64(v)
					}
				case "ingest_batch":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.IngestBatch = v
					}
				case "worker_cap":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WorkerCap = v
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				case "store_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.StoreTimeoutMs = v
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "lite_globs":
					if globs := collectStringArgs(cn); len(globs) > 0 {
						cfg.Index.LiteGlobs = globs
					}
				case "exclude":
					if globs := collectStringArgs(cn); len(globs) > 0 {
						cfg.Index.Exclude = globs
					}
				}
			}
		case "neighbor":
			for _, cn := range n.Children {
				if nodeName(cn) == "default_tolerance" {
					if v, ok := firstFloatArg(cn); ok {
						cfg.Neighbor.DefaultTolerance = v
					}
				}
			}
		case "risk":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "chaos_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Risk.ChaosWeight = v
					}
				case "blast_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Risk.BlastWeight = v
					}
				case "churn_weight":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Risk.ChurnWeight = v
					}
				case "blast_cap":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Risk.BlastCap = v
					}
				case "is_core_min":
					if v, ok := firstIntArg(cn); ok {
						cfg.Risk.IsCoreMin = v
					}
				}
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "addr":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.Addr = s
					}
				case "password":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.Password = s
					}
				case "db":
					if v, ok := firstIntArg(cn); ok {
						cfg.Store.DB = v
					}
				case "key_prefix":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.KeyPrefix = s
					}
				}
			}
		}
	}

	return cfg, nil
}

// mergeInto overlays a fully-populated overlay config onto cfg in place.
// Both originate from Default(), so this is a straight field copy.
func mergeInto(cfg, overlay *Config) {
	*cfg = *overlay
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
