package engine

// State tracks one directory through a run. CacheHit, Committed and Failed
// are terminal; a parent aggregates only once every qualifying child reached
// a terminal state.
type State int

const (
	StatePending State = iota
	StateCacheHit
	StateCacheMiss
	StateAnalyzing
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCacheHit:
		return "cache-hit"
	case StateCacheMiss:
		return "cache-miss"
	case StateAnalyzing:
		return "analyzing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateCacheHit || s == StateCommitted || s == StateFailed
}

// Failure categories reported in the completion summary.
const (
	FailureProvider  = "provider"
	FailureTraversal = "traversal"
	FailureCache     = "cache"
)

// Failure records one locally degraded directory. The run always continues
// past these; only configuration errors abort before traversal.
type Failure struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Cause    string `json:"cause"`
}

// Stats summarizes a run.
type Stats struct {
	LeafCount      int            `json:"leaf_count"`
	ParentCount    int            `json:"parent_count"`
	CacheHits      int            `json:"cache_hits"`
	CacheMisses    int            `json:"cache_misses"`
	Failures       int            `json:"failures"`
	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`
	ProviderCalls  int            `json:"provider_calls"`
	FilesProcessed int            `json:"files_processed"`
	DurationMS     int64          `json:"duration_ms"`
}
