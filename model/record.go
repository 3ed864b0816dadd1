package model

import "time"

// ExtractionMethod reports how candidates were produced from a record.
type ExtractionMethod string

const (
	ExtractionMethodRules      ExtractionMethod = "rules"
	ExtractionMethodGenerative ExtractionMethod = "generative"
	ExtractionMethodNone       ExtractionMethod = "none"
)

// Record is one raw source record handed to the extractor: a structured
// table row (Schema + Fields), a free-text note (Schema "note" + Text), or
// a profile fragment.
type Record struct {
	Tenant    string    `json:"tenant"`
	Schema    string    `json:"schema"`
	Fields    Metadata  `json:"fields,omitempty"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Candidate is one extracted entity plus the optional edge anchoring it to
// another entity. An empty AnchorName means the edge starts at the record
// owner.
type Candidate struct {
	Entity     *Entity  `json:"entity"`
	Relation   string   `json:"relation,omitempty"`
	AnchorName string   `json:"anchor_name,omitempty"`
	AnchorType string   `json:"anchor_type,omitempty"`
	Evidence   Evidence `json:"evidence"`
}

// ExtractionResult bundles the candidates extracted from one record with
// the method that produced them.
type ExtractionResult struct {
	Candidates []Candidate      `json:"candidates"`
	Method     ExtractionMethod `json:"method"`
}

// Memory is one entry in the default pgvector-backed semantic memory store.
type Memory struct {
	ID         int64     `json:"id"`
	Tenant     string    `json:"tenant"`
	Collection string    `json:"collection"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Confidence float64   `json:"confidence"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// ExtractionJob is one row in the durable extraction queue. Record writes
// enqueue a job; a bounded worker pool claims and processes them off the
// caller's latency path.
type ExtractionJob struct {
	ID        int64      `json:"id"`
	Tenant    string     `json:"tenant"`
	Schema    string     `json:"schema"`
	Payload   Metadata   `json:"payload"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// Extraction job statuses.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)
