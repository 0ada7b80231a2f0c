package types

import "time"

// WindowSignature is the signature of a single byte window plus its offset
// within the file body (spec §3 "Window signature").
type WindowSignature struct {
	Offset    int64
	Signature Signature
}

// SymbolicState is one of the three chaos-analyzer states (spec §4.2).
type SymbolicState int

const (
	StateLowFluctuation SymbolicState = iota
	StateOscillation
	StatePersistentHigh
)

func (s SymbolicState) String() string {
	switch s {
	case StateLowFluctuation:
		return "LOW_FLUCTUATION"
	case StateOscillation:
		return "OSCILLATION"
	case StatePersistentHigh:
		return "PERSISTENT_HIGH"
	default:
		return "UNKNOWN"
	}
}

// RiskClass is the chaos-derived risk banding of spec §3.
type RiskClass string

const (
	RiskLow  RiskClass = "LOW"
	RiskHigh RiskClass = "HIGH"
)

// CombinedRiskClass is the four-way banding of the risk composer (spec §4.6).
type CombinedRiskClass string

const (
	CombinedCritical CombinedRiskClass = "CRITICAL"
	CombinedHigh     CombinedRiskClass = "HIGH"
	CombinedModerate CombinedRiskClass = "MODERATE"
	CombinedLow      CombinedRiskClass = "LOW"
)

// ChaosProfile is the per-file chaos record of spec §3.
type ChaosProfile struct {
	ChaosScore       float64
	Entropy          float64
	Coherence        float64
	HazardThreshold  float64
	RiskClass        RiskClass
	WindowsAnalyzed  int
	SymbolicStates   map[SymbolicState]int
}

// TooSmallToProfile reports whether the profile represents a file with
// fewer windows than required (spec §3 invariant 2).
func (p *ChaosProfile) TooSmallToProfile() bool {
	return p == nil || p.WindowsAnalyzed == 0
}

// FileRecord is the logical per-path entity of spec §3.
type FileRecord struct {
	Path         string
	Body         []byte
	SizeBytes    int64
	ModifiedAt   time.Time
	IsText       bool
	Signature    *Signature
	ChaosProfile *ChaosProfile
	Imports      map[string]struct{}
}

// IngestSummary is the first-class observable emitted by every ingest
// (spec §4.4 "Reported ingest summary").
type IngestSummary struct {
	TextFiles     int
	BinaryFiles   int
	TotalBytes    int64
	Signatures    int
	Skipped       int
	Errors        int
	AvgChaos      float64
	HighRiskCount int
	ElapsedMs     int64
	Cancelled     bool
}

// NeighborResult is one row of a neighborhood query (spec §4.3).
type NeighborResult struct {
	Path      string
	Signature Signature
	Delta     float64
}

// ChaosRankResult is one row of a chaos-ranking query (spec §4.3).
type ChaosRankResult struct {
	Path    string
	Profile ChaosProfile
}

// BlastRadius is the result of a reverse-reachability query (spec §4.5).
type BlastRadius struct {
	ImportedBy map[string]struct{}
	Depth      int
	Size       int
}

// CombinedRisk is the output of the risk composer (spec §4.6).
type CombinedRisk struct {
	Path   string
	Chaos  float64
	Blast  int
	Churn  float64
	Score  float64
	Class  CombinedRiskClass
}
