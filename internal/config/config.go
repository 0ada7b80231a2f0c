// Package config loads the recognized options of spec §6 from a KDL file
// (".chaoslens.kdl"), the same configuration language the teacher uses for
// ".lci.kdl", falling back to the documented defaults when no file exists.
package config

type Config struct {
	Project Project
	Encoder Encoder
	Chaos   Chaos
	Index   Index
	Neighbor Neighbor
	Risk    Risk
	Store   Store
}

type Project struct {
	Root string
}

// Encoder holds the C1 byte manifold encoder parameters.
type Encoder struct {
	WindowBytes        int // window_bytes, default 64
	StrideBytes        int // stride_bytes, default 48
	SignaturePrecision int // signature_precision, default 3
}

// Chaos holds the C2 chaos analyzer parameters.
type Chaos struct {
	StateWindow      int     // chaos_state_window, default 5
	HazardPercentile float64 // chaos_hazard_percentile, default 75 (as a fraction: 0.75)
	HighThreshold    float64 // chaos_high_threshold, default 0.35
	// HazardCenter resolves the open question of spec §9: "abs" (default,
	// standardized) or "median" (the alternative some source revisions use).
	HazardCenter string
}

// Index holds the C4 ingestion coordinator parameters.
type Index struct {
	MaxBytesPerFile int64    // max_bytes_per_file, default 512000
	LiteGlobs       []string // lite_globs, default matches tests/docs
	IngestBatch     int      // ingest_batch, default 64
	WorkerCap       int      // worker_cap, default 8
	WatchDebounceMs int      // watcher_debounce_ms, default 250
	StoreTimeoutMs  int      // store_timeout_ms, default 5000
	Exclude         []string
	WatchMode       bool
}

// Neighbor holds C3/C7 neighborhood and clustering defaults.
type Neighbor struct {
	DefaultTolerance float64 // neighbor_default_tolerance, default 0.05
}

// Risk holds the C6 risk composer weights and bands.
type Risk struct {
	ChaosWeight float64 // combined_risk_weights[0], default 0.4
	BlastWeight float64 // combined_risk_weights[1], default 0.3
	ChurnWeight float64 // combined_risk_weights[2], default 0.3
	BlastCap    float64 // denominator in min(blast_radius/50, 1), default 50
	IsCoreMin   int      // is_core threshold, default 10
	BandCritical float64 // risk_bands[0], default 0.40
	BandHigh     float64 // risk_bands[1], default 0.30
	BandModerate float64 // risk_bands[2], default 0.20
}

// Store holds the persistent key/value store connection parameters.
type Store struct {
	Addr     string
	Password string
	DB       int
	KeyPrefix string
}

// Default returns the configuration documented in spec §6.
func Default() *Config {
	return &Config{
		Encoder: Encoder{
			WindowBytes:        64,
			StrideBytes:        48,
			SignaturePrecision: 3,
		},
		Chaos: Chaos{
			StateWindow:      5,
			HazardPercentile: 0.75,
			HighThreshold:    0.35,
			HazardCenter:     "abs",
		},
		Index: Index{
			MaxBytesPerFile: 512000,
			LiteGlobs: []string{
				"**/*_test.go", "**/*.test.ts", "**/*.test.js",
				"**/tests/**", "**/test/**", "**/docs/**", "**/*.md",
			},
			IngestBatch:     64,
			WorkerCap:       8,
			WatchDebounceMs: 250,
			StoreTimeoutMs:  5000,
			WatchMode:       true,
			Exclude: []string{
				"**/.git/**",
				"**/.*/**",
				"**/node_modules/**",
				"**/vendor/**",
			},
		},
		Neighbor: Neighbor{DefaultTolerance: 0.05},
		Risk: Risk{
			ChaosWeight:  0.4,
			BlastWeight:  0.3,
			ChurnWeight:  0.3,
			BlastCap:     50,
			IsCoreMin:    10,
			BandCritical: 0.40,
			BandHigh:     0.30,
			BandModerate: 0.20,
		},
		Store: Store{
			Addr:      "127.0.0.1:6379",
			DB:        0,
			KeyPrefix: "",
		},
	}
}

// Load reads a KDL config file under root (".chaoslens.kdl") and overlays it
// on top of Default(). A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()
	cfg.Project.Root = root
	overlay, err := loadKDL(root)
	if err != nil {
		return nil, err
	}
	if overlay != nil {
		mergeInto(cfg, overlay)
	}
	return cfg, nil
}
