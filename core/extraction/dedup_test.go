package extraction

import (
	"context"
	"testing"

	"github.com/epitome-ai/fusion/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertCandidateDeduplication(t *testing.T) {
	deduper, _, _ := initDeduper(t)
	tenant := uuid.NewString()
	extractor := NewExtractor(nil, nil)

	extractMealRecord := func(food string) model.Candidate {
		record := &model.Record{Tenant: tenant, Schema: "meal", Fields: model.Metadata{"food": food}}
		result := extractor.ExtractRecord(context.Background(), record, nil)
		require.Len(t, result.Candidates, 1)
		return result.Candidates[0]
	}

	t.Run("Same entity from two records deduplicates to one row", func(t *testing.T) {
		first, err := deduper.UpsertCandidate(tenant, extractMealRecord("Pizza"))
		require.NoError(t, err)
		assert.Equal(t, 1, first.MentionCount)

		second, err := deduper.UpsertCandidate(tenant, extractMealRecord("pizza"))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.MentionCount)
	})

	t.Run("Different entity creates a new row", func(t *testing.T) {
		pizza, err := deduper.UpsertCandidate(tenant, extractMealRecord("Margherita Pizza"))
		require.NoError(t, err)

		salad, err := deduper.UpsertCandidate(tenant, extractMealRecord("Caesar Salad"))
		require.NoError(t, err)

		assert.NotEqual(t, pizza.ID, salad.ID)
		assert.Equal(t, 1, salad.MentionCount)
	})

	t.Run("Candidate without a name is rejected", func(t *testing.T) {
		_, err := deduper.UpsertCandidate(tenant, model.Candidate{Entity: &model.Entity{Type: model.EntityTypeFood}})
		assert.Error(t, err)
	})
}

func TestApplyExtractionResult(t *testing.T) {
	deduper, entities, edges := initDeduper(t)
	tenant := uuid.NewString()
	extractor := NewExtractor(nil, nil)

	t.Run("Candidates become entities with edges from the owner", func(t *testing.T) {
		record := &model.Record{
			Tenant: tenant,
			Schema: "meal",
			Fields: model.Metadata{"food": "Ramen", "restaurant": "Noodle House"},
		}
		result := extractor.ExtractRecord(context.Background(), record, nil)

		err := deduper.Apply(tenant, "Alex", result)
		require.NoError(t, err)

		owner, err := entities.SelectEntityByName(tenant, model.EntityTypePerson, "Alex")
		require.NoError(t, err)

		connected, err := edges.SelectEdgesFromEntity(owner.ID, nil, 10)
		require.NoError(t, err)
		require.Len(t, connected, 2)

		relations := []string{connected[0].Relation, connected[1].Relation}
		assert.ElementsMatch(t, []string{model.RelationAte, model.RelationVisited}, relations)
	})

	t.Run("Family candidates anchor at the named relative", func(t *testing.T) {
		family := map[string]interface{}{
			"wife": map[string]interface{}{
				"name":   "Anna",
				"mother": map[string]interface{}{"name": "Greta"},
			},
		}
		result := &model.ExtractionResult{
			Candidates: ExtractFamily(tenant, family),
			Method:     model.ExtractionMethodRules,
		}

		err := deduper.Apply(tenant, "Alex", result)
		require.NoError(t, err)

		anna, err := entities.SelectEntityByName(tenant, model.EntityTypePerson, "Anna")
		require.NoError(t, err)

		relation := model.RelationParent
		fromAnna, err := edges.SelectEdgesFromEntity(anna.ID, &relation, 10)
		require.NoError(t, err)
		require.Len(t, fromAnna, 1)

		greta, err := entities.SelectEntityByName(tenant, model.EntityTypePerson, "Greta")
		require.NoError(t, err)
		assert.Equal(t, greta.ID, fromAnna[0].TargetID)
	})

	t.Run("Repeated apply strengthens instead of duplicating", func(t *testing.T) {
		record := &model.Record{Tenant: tenant, Schema: "workout", Fields: model.Metadata{"activity": "Swimming"}}
		result := extractor.ExtractRecord(context.Background(), record, nil)

		require.NoError(t, deduper.Apply(tenant, "Alex", result))
		require.NoError(t, deduper.Apply(tenant, "Alex", result))

		swimming, err := entities.SelectEntityByName(tenant, model.EntityTypeActivity, "Swimming")
		require.NoError(t, err)
		assert.Equal(t, 2, swimming.MentionCount)

		owner, err := entities.SelectEntityByName(tenant, model.EntityTypePerson, "Alex")
		require.NoError(t, err)
		relation := model.RelationDid
		didEdges, err := edges.SelectEdgesFromEntity(owner.ID, &relation, 10)
		require.NoError(t, err)
		require.Len(t, didEdges, 1)
		assert.Equal(t, float64(2), didEdges[0].Weight)
	})

	t.Run("Empty result is a no-op", func(t *testing.T) {
		err := deduper.Apply(tenant, "Alex", &model.ExtractionResult{Method: model.ExtractionMethodNone})
		assert.NoError(t, err)
	})
}
