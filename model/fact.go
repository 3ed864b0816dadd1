package model

// RetrievedFact is one fact produced by a per-source retriever. Facts are a
// query-scoped view over entities, edges, vector entries, table rows and
// profile fields; they are never persisted.
type RetrievedFact struct {
	Fact       string     `json:"fact"`
	SourceType SourceType `json:"source_type"`
	SourceRef  string     `json:"source_ref"`
	Confidence float64    `json:"confidence"`
	// Timestamp is an RFC 3339 string when the source carries one, empty
	// otherwise. Ordering compares these lexicographically.
	Timestamp string `json:"timestamp,omitempty"`
}

// RetrievalResult is the fused answer to a topic query. Zero facts is a
// valid outcome; partial failures surface as warnings, never as an error.
type RetrievalResult struct {
	Topic             string           `json:"topic"`
	Intent            ClassifiedIntent `json:"intent"`
	Facts             []RetrievedFact  `json:"facts"`
	SourcesQueried    []SourceType     `json:"sources_queried"`
	MissingSources    []SourceType     `json:"missing_sources,omitempty"`
	Coverage          float64          `json:"coverage"`
	Warnings          []string         `json:"warnings,omitempty"`
	UncertaintyReason string           `json:"uncertainty_reason,omitempty"`
}
