package extraction

import (
	"fmt"
	"strings"

	"github.com/epitome-ai/fusion/model"
)

// Rule-extracted candidates are deterministic, so they carry a high
// confidence.
const ruleConfidence = 0.9

// RuleFunc maps one record of a known schema to candidate entities and
// edges. An empty result hands the record to the generative fallback.
type RuleFunc func(record *model.Record) []model.Candidate

func defaultRules() map[string]RuleFunc {
	return map[string]RuleFunc{
		"meal":       extractMeal,
		"workout":    extractWorkout,
		"medication": extractMedication,
		"trip":       extractTrip,
	}
}

// extractMeal yields a food entity with an "ate" edge, plus a place entity
// with a "visited" edge when a restaurant field is present.
func extractMeal(record *model.Record) []model.Candidate {
	var candidates []model.Candidate

	if food := fieldString(record, "food", "dish", "name"); food != "" {
		properties := model.Metadata{}
		if cuisine := fieldString(record, "cuisine"); cuisine != "" {
			properties["cuisine"] = cuisine
		}
		if mealType := fieldString(record, "meal_type", "type"); mealType != "" {
			properties["meal_type"] = mealType
		}
		candidates = append(candidates, model.Candidate{
			Entity: &model.Entity{
				Tenant:     record.Tenant,
				Type:       model.EntityTypeFood,
				Name:       food,
				Properties: properties,
				Confidence: ruleConfidence,
			},
			Relation: model.RelationAte,
			Evidence: recordEvidence(record),
		})
	}

	if place := fieldString(record, "restaurant", "place", "location"); place != "" {
		candidates = append(candidates, model.Candidate{
			Entity: &model.Entity{
				Tenant:     record.Tenant,
				Type:       model.EntityTypePlace,
				Name:       place,
				Confidence: ruleConfidence,
			},
			Relation: model.RelationVisited,
			Evidence: recordEvidence(record),
		})
	}

	return candidates
}

func extractWorkout(record *model.Record) []model.Candidate {
	activity := fieldString(record, "activity", "type", "name")
	if activity == "" {
		return nil
	}

	properties := model.Metadata{}
	if duration := fieldString(record, "duration", "duration_minutes"); duration != "" {
		properties["duration"] = duration
	}
	if intensity := fieldString(record, "intensity"); intensity != "" {
		properties["intensity"] = intensity
	}

	return []model.Candidate{{
		Entity: &model.Entity{
			Tenant:     record.Tenant,
			Type:       model.EntityTypeActivity,
			Name:       activity,
			Properties: properties,
			Confidence: ruleConfidence,
		},
		Relation: model.RelationDid,
		Evidence: recordEvidence(record),
	}}
}

func extractMedication(record *model.Record) []model.Candidate {
	medication := fieldString(record, "medication", "drug", "name")
	if medication == "" {
		return nil
	}

	properties := model.Metadata{}
	if dose := fieldString(record, "dose", "dosage"); dose != "" {
		properties["dose"] = dose
	}
	if frequency := fieldString(record, "frequency"); frequency != "" {
		properties["frequency"] = frequency
	}

	return []model.Candidate{{
		Entity: &model.Entity{
			Tenant:     record.Tenant,
			Type:       model.EntityTypeMedication,
			Name:       medication,
			Properties: properties,
			Confidence: ruleConfidence,
		},
		Relation: model.RelationTakes,
		Evidence: recordEvidence(record),
	}}
}

func extractTrip(record *model.Record) []model.Candidate {
	destination := fieldString(record, "destination", "place", "city")
	if destination == "" {
		return nil
	}

	properties := model.Metadata{}
	if purpose := fieldString(record, "purpose"); purpose != "" {
		properties["purpose"] = purpose
	}

	return []model.Candidate{{
		Entity: &model.Entity{
			Tenant:     record.Tenant,
			Type:       model.EntityTypePlace,
			Name:       destination,
			Properties: properties,
			Confidence: ruleConfidence,
		},
		Relation: model.RelationVisited,
		Evidence: recordEvidence(record),
	}}
}

// fieldString returns the first non-empty string value among the given
// field names.
func fieldString(record *model.Record, fields ...string) string {
	for _, field := range fields {
		value, ok := record.Fields[field]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64, int, int64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func recordEvidence(record *model.Record) model.Evidence {
	return model.Evidence{
		Type:       "record",
		Source:     record.Schema,
		Confidence: ruleConfidence,
	}
}
