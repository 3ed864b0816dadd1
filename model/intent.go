package model

// Intent is the primary category a topic query falls into.
type Intent string

const (
	IntentFactual      Intent = "factual"
	IntentTimeline     Intent = "timeline"
	IntentPreference   Intent = "preference"
	IntentRelationship Intent = "relationship"
	IntentQuantitative Intent = "quantitative"
	IntentGeneral      Intent = "general"
)

// ClassifiedIntent is the query-scoped result of intent classification.
// ExpandedTerms always contains the meaningful topic tokens plus any
// synonym-cluster expansions; hint lists may be empty.
type ClassifiedIntent struct {
	Primary         Intent   `json:"primary"`
	ExpandedTerms   []string `json:"expanded_terms"`
	EntityTypeHints []string `json:"entity_type_hints"`
	RelationHints   []string `json:"relation_hints"`
}

// HasRelationHint reports whether the given relation is among the hints.
func (c *ClassifiedIntent) HasRelationHint(relation string) bool {
	for _, hint := range c.RelationHints {
		if hint == relation {
			return true
		}
	}
	return false
}

// HasEntityTypeHint reports whether the given entity type is among the hints.
func (c *ClassifiedIntent) HasEntityTypeHint(entityType string) bool {
	for _, hint := range c.EntityTypeHints {
		if hint == entityType {
			return true
		}
	}
	return false
}
