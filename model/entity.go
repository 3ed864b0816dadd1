package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Curated entity types used for scoring and boost lookups. The taxonomy is
// open: any string is a valid entity type, these are just the ones the
// engine knows how to favor.
const (
	EntityTypePerson       = "person"
	EntityTypePlace        = "place"
	EntityTypeOrganization = "organization"
	EntityTypeFood         = "food"
	EntityTypeTopic        = "topic"
	EntityTypePreference   = "preference"
	EntityTypeEvent        = "event"
	EntityTypeActivity     = "activity"
	EntityTypeMedication   = "medication"
)

// Entity represents a named node in the knowledge graph.
// At most one non-deleted entity exists per (type, lower(name)) pair within
// a tenant; repeat extractions reinforce the existing row instead of
// creating a new one.
type Entity struct {
	ID           uuid.UUID  `json:"id"`
	Tenant       string     `json:"tenant"`
	Type         string     `json:"entity_type"`
	Name         string     `json:"name"`
	Properties   Metadata   `json:"properties,omitempty"`
	Confidence   float64    `json:"confidence"`
	MentionCount int        `json:"mention_count"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// NormalizedName returns the name in the form used for the identity
// invariant lookup.
func (e *Entity) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// WellEstablished reports whether the entity has been observed often enough
// to be rank-boosted during graph seed resolution.
func (e *Entity) WellEstablished() bool {
	return e.MentionCount >= 3
}
