package intent

import (
	"testing"

	"github.com/epitome-ai/fusion/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyEmptyTopic(t *testing.T) {
	classified := Classify("")

	assert.Equal(t, model.IntentGeneral, classified.Primary)
	assert.Empty(t, classified.EntityTypeHints)
	assert.Empty(t, classified.RelationHints)
	assert.Empty(t, classified.ExpandedTerms)
}

func TestClassifyPrimaryIntent(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  model.Intent
	}{
		{"Timeline keyword", "what did I eat yesterday", model.IntentTimeline},
		{"Timeline phrase", "trips last month", model.IntentTimeline},
		{"Preference keyword", "favorite restaurants", model.IntentPreference},
		{"Relationship keyword", "who is Maria", model.IntentRelationship},
		{"Quantitative phrase", "how many workouts this year", model.IntentQuantitative},
		{"Quantitative keyword", "total calories", model.IntentQuantitative},
		{"Factual default with two tokens", "pizza toppings", model.IntentFactual},
		{"General for single token", "pizza", model.IntentGeneral},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			classified := Classify(test.topic)
			assert.Equal(t, test.want, classified.Primary)
		})
	}
}

func TestClassifyTimelineBeatsQuantitative(t *testing.T) {
	// Families are tested in fixed priority order, timeline first
	classified := Classify("how many meals yesterday")

	assert.Equal(t, model.IntentTimeline, classified.Primary)
}

func TestClassifyPossessiveRole(t *testing.T) {
	t.Run("Possessive role overrides primary intent", func(t *testing.T) {
		classified := Classify("my daughter's birthday")

		assert.Equal(t, model.IntentRelationship, classified.Primary)
		assert.Contains(t, classified.EntityTypeHints, model.EntityTypePerson)
		assert.Contains(t, classified.RelationHints, model.RelationFamilyMember)
		assert.Contains(t, classified.RelationHints, model.RelationChild)
	})

	t.Run("Override wins against timeline keywords", func(t *testing.T) {
		classified := Classify("when did my wife visit Paris")

		assert.Equal(t, model.IntentRelationship, classified.Primary)
		assert.Contains(t, classified.RelationHints, model.RelationSpouse)
	})

	t.Run("Non-role possessive does not override", func(t *testing.T) {
		classified := Classify("my favorite pizza")

		assert.Equal(t, model.IntentPreference, classified.Primary)
	})
}

func TestClassifyTermExpansion(t *testing.T) {
	t.Run("Synonym cluster adds canonical key and members", func(t *testing.T) {
		classified := Classify("dinner plans")

		assert.Contains(t, classified.ExpandedTerms, "dinner")
		assert.Contains(t, classified.ExpandedTerms, "food")
		assert.Contains(t, classified.ExpandedTerms, "meal")
	})

	t.Run("Stop-words are removed", func(t *testing.T) {
		classified := Classify("what is the best restaurant in town")

		assert.NotContains(t, classified.ExpandedTerms, "what")
		assert.NotContains(t, classified.ExpandedTerms, "the")
		assert.NotContains(t, classified.ExpandedTerms, "in")
	})

	t.Run("Plural tokens are normalized", func(t *testing.T) {
		classified := Classify("recent trips")

		assert.Contains(t, classified.ExpandedTerms, "trip")
		assert.Contains(t, classified.ExpandedTerms, "travel")
	})
}

func TestClassifyHints(t *testing.T) {
	t.Run("Place cues add place hint and location relation", func(t *testing.T) {
		classified := Classify("where does Tom live")

		assert.Contains(t, classified.EntityTypeHints, model.EntityTypePlace)
		assert.Contains(t, classified.RelationHints, model.RelationLivesIn)
	})

	t.Run("Work cues add organization hint and works_at relation", func(t *testing.T) {
		classified := Classify("which company does Anna work for")

		assert.Contains(t, classified.EntityTypeHints, model.EntityTypeOrganization)
		assert.Contains(t, classified.RelationHints, model.RelationWorksAt)
	})
}

func TestClassifyDeterminism(t *testing.T) {
	topic := "favorite meals with my brother last summer"

	first := Classify(topic)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(topic))
	}
}
