package scoring

import (
	"testing"

	"github.com/epitome-ai/fusion/core/intent"
	"github.com/epitome-ai/fusion/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findSource(t *testing.T, scored []model.ScoredSource, sourceType model.SourceType, sourceID string) model.ScoredSource {
	t.Helper()
	for _, source := range scored {
		if source.SourceType == sourceType && source.SourceID == sourceID {
			return source
		}
	}
	t.Fatalf("source %v/%v not found", sourceType, sourceID)
	return model.ScoredSource{}
}

func TestScoreSourceRelevanceTables(t *testing.T) {
	tables := []model.TableMeta{
		{Name: "meals", Description: "what I ate"},
		{Name: "workouts", Description: "exercise log"},
		{Name: "books", Description: "reading list"},
	}

	t.Run("Exact name match scores highest", func(t *testing.T) {
		classified := intent.Classify("meals")
		scored := ScoreSourceRelevance("meals", classified, tables, nil, nil)

		meals := findSource(t, scored, model.SourceTypeTable, "meals")
		assert.GreaterOrEqual(t, meals.Relevance, 0.85)
	})

	t.Run("Substring match beats description match", func(t *testing.T) {
		classified := intent.Classify("workout history")
		scored := ScoreSourceRelevance("workout history", classified, tables, nil, nil)

		workouts := findSource(t, scored, model.SourceTypeTable, "workouts")
		books := findSource(t, scored, model.SourceTypeTable, "books")
		assert.Greater(t, workouts.Relevance, books.Relevance)
		assert.GreaterOrEqual(t, workouts.Relevance, 0.65)
	})

	t.Run("Description match scores above default", func(t *testing.T) {
		classified := intent.Classify("reading habits")
		scored := ScoreSourceRelevance("reading habits", classified, tables, nil, nil)

		books := findSource(t, scored, model.SourceTypeTable, "books")
		assert.GreaterOrEqual(t, books.Relevance, 0.5)
	})

	t.Run("Short expanded synonyms do not match inside unrelated names", func(t *testing.T) {
		classified := intent.Classify("meals")
		assert.Contains(t, classified.ExpandedTerms, "ate")

		scored := ScoreSourceRelevance("meals", classified,
			[]model.TableMeta{{Name: "unrelated"}},
			[]model.CollectionMeta{{Name: "unrelated"}}, nil)

		table := findSource(t, scored, model.SourceTypeTable, "unrelated")
		collection := findSource(t, scored, model.SourceTypeVector, "unrelated")
		assert.Less(t, table.Relevance, 0.3)
		assert.Less(t, collection.Relevance, 0.3)
	})

	t.Run("Quantitative intent nudges tables up", func(t *testing.T) {
		classified := intent.Classify("how many books")
		require.Equal(t, model.IntentQuantitative, classified.Primary)
		scored := ScoreSourceRelevance("how many books", classified, tables, nil, nil)

		books := findSource(t, scored, model.SourceTypeTable, "books")
		assert.GreaterOrEqual(t, books.Relevance, 0.75)
	})
}

func TestScoreSourceRelevanceGraphLadder(t *testing.T) {
	tests := []struct {
		name       string
		classified model.ClassifiedIntent
		want       float64
	}{
		{"Relationship intent", model.ClassifiedIntent{Primary: model.IntentRelationship}, 0.9},
		{"Relation hints", model.ClassifiedIntent{Primary: model.IntentFactual, RelationHints: []string{model.RelationLivesIn}}, 0.7},
		{"Entity type hints", model.ClassifiedIntent{Primary: model.IntentFactual, EntityTypeHints: []string{model.EntityTypePlace}}, 0.6},
		{"Baseline", model.ClassifiedIntent{Primary: model.IntentGeneral}, 0.4},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			scored := ScoreSourceRelevance("anything", test.classified, nil, nil, nil)
			graph := findSource(t, scored, model.SourceTypeGraph, "graph")
			assert.Equal(t, test.want, graph.Relevance)
		})
	}
}

func TestScoreSourceRelevanceProfile(t *testing.T) {
	profile := model.Metadata{
		"diet":     "vegetarian",
		"hometown": "Leipzig",
	}

	t.Run("Exact key match", func(t *testing.T) {
		classified := model.ClassifiedIntent{Primary: model.IntentFactual, ExpandedTerms: []string{"diet"}}
		scored := ScoreSourceRelevance("diet", classified, nil, nil, profile)

		source := findSource(t, scored, model.SourceTypeProfile, "profile")
		assert.GreaterOrEqual(t, source.Relevance, 0.8)
	})

	t.Run("Value match", func(t *testing.T) {
		classified := model.ClassifiedIntent{Primary: model.IntentFactual, ExpandedTerms: []string{"vegetarian"}}
		scored := ScoreSourceRelevance("vegetarian food", classified, nil, nil, profile)

		source := findSource(t, scored, model.SourceTypeProfile, "profile")
		assert.GreaterOrEqual(t, source.Relevance, 0.5)
	})

	t.Run("Preference intent nudge", func(t *testing.T) {
		classified := model.ClassifiedIntent{Primary: model.IntentPreference}
		scored := ScoreSourceRelevance("unrelated", classified, nil, nil, profile)

		source := findSource(t, scored, model.SourceTypeProfile, "profile")
		assert.InDelta(t, 0.4, source.Relevance, 0.001)
	})
}

func TestScoreSourceRelevanceInvariants(t *testing.T) {
	tables := []model.TableMeta{{Name: "meals"}, {Name: "workouts"}}
	collections := []model.CollectionMeta{{Name: "journal"}}
	classified := intent.Classify("what did I eat last week")

	scored := ScoreSourceRelevance("what did I eat last week", classified, tables, collections, model.Metadata{"diet": "none"})

	t.Run("Scores stay within unit interval", func(t *testing.T) {
		for _, source := range scored {
			assert.GreaterOrEqual(t, source.Relevance, 0.0)
			assert.LessOrEqual(t, source.Relevance, 1.0)
		}
	})

	t.Run("Graph and profile are never zero", func(t *testing.T) {
		graph := findSource(t, scored, model.SourceTypeGraph, "graph")
		profile := findSource(t, scored, model.SourceTypeProfile, "profile")
		assert.Greater(t, graph.Relevance, 0.0)
		assert.Greater(t, profile.Relevance, 0.0)
	})

	t.Run("Output is sorted descending", func(t *testing.T) {
		for i := 1; i < len(scored); i++ {
			assert.GreaterOrEqual(t, scored[i-1].Relevance, scored[i].Relevance)
		}
	})

	t.Run("Every source carries a reason", func(t *testing.T) {
		for _, source := range scored {
			assert.NotEmpty(t, source.Reason)
		}
	})
}
