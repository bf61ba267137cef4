package core

// SourceAnswer is one surviving partition's extracted finding together with
// the attribution metadata captured when the finding was produced.
type SourceAnswer struct {
	SourceID    string  `json:"source_id"`
	SourceLabel string  `json:"source_label"`
	Answer      any     `json:"answer"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// AggregatedAnswer merges per-partition results into one answer while keeping
// every finding attributed to its originating partition. Ordering follows the
// original request order of the partitions that succeeded, never completion
// time. Labels come from each result's own metadata; positional matching
// against the original partition list would misattribute findings once failed
// partitions are filtered out.
type AggregatedAnswer struct {
	PerSource []SourceAnswer `json:"per_source"`
}
