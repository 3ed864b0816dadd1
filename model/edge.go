package model

import (
	"time"

	"github.com/google/uuid"
)

// Curated relations used for hint lookups. Relations are an open taxonomy;
// unknown relations flow through untouched.
const (
	RelationFamilyMember = "family_member"
	RelationSpouse       = "spouse"
	RelationChild        = "child"
	RelationParent       = "parent"
	RelationSibling      = "sibling"
	RelationFriend       = "friend"
	RelationWorksAt      = "works_at"
	RelationLivesIn      = "lives_in"
	RelationVisited      = "visited"
	RelationAte          = "ate"
	RelationTakes        = "takes"
	RelationDid          = "did"
	RelationLikes        = "likes"
)

// Evidence records one observation supporting an edge.
type Evidence struct {
	Type       string   `json:"type"`
	Source     string   `json:"source"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// Edge represents a directed, typed, weighted relationship between two
// entities. Multiple observations of the same (source, target, relation)
// triple strengthen one edge rather than creating duplicates.
type Edge struct {
	ID         uuid.UUID    `json:"id"`
	Tenant     string       `json:"tenant"`
	SourceID   uuid.UUID    `json:"source_id"`
	TargetID   uuid.UUID    `json:"target_id"`
	Relation   string       `json:"relation"`
	Weight     float64      `json:"weight"`
	Confidence float64      `json:"confidence"`
	Evidence   EvidenceList `json:"evidence,omitempty"`
	Properties Metadata     `json:"properties,omitempty"`
	FirstSeen  time.Time    `json:"first_seen"`
	LastSeen   time.Time    `json:"last_seen"`
	DeletedAt  *time.Time   `json:"deleted_at,omitempty"`
}

// Neighbor pairs an entity with the edge that connects it to the entity the
// neighbor lookup started from.
type Neighbor struct {
	Entity *Entity `json:"entity"`
	Edge   *Edge   `json:"edge"`
}

// TraversalNode represents an entity reached during a bounded multi-hop
// traversal.
type TraversalNode struct {
	Entity *Entity `json:"entity"`
	Depth  int     `json:"depth"`
}
