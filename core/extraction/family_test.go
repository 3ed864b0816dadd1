package extraction

import (
	"testing"

	"github.com/epitome-ai/fusion/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCandidate(t *testing.T, candidates []model.Candidate, name string) model.Candidate {
	t.Helper()
	for _, candidate := range candidates {
		if candidate.Entity.Name == name {
			return candidate
		}
	}
	t.Fatalf("candidate %q not found", name)
	return model.Candidate{}
}

func TestExtractFamily(t *testing.T) {
	t.Run("Nested relatives anchor at the nearest enclosing named relative", func(t *testing.T) {
		family := map[string]interface{}{
			"wife": map[string]interface{}{
				"name": "Anna",
				"mother": map[string]interface{}{
					"name": "Greta",
				},
			},
		}

		candidates := ExtractFamily("tenant-1", family)

		require.Len(t, candidates, 2)

		anna := findCandidate(t, candidates, "Anna")
		assert.Equal(t, model.RelationSpouse, anna.Relation)
		assert.Empty(t, anna.AnchorName, "top-level relative anchors at the owner")

		greta := findCandidate(t, candidates, "Greta")
		assert.Equal(t, "Anna", greta.AnchorName, "wife's mother attaches to the wife")
		assert.Equal(t, model.RelationParent, greta.Relation)
	})

	t.Run("Unnamed intermediate collapses to a generic family relation", func(t *testing.T) {
		family := map[string]interface{}{
			"wife": map[string]interface{}{
				"mother": map[string]interface{}{
					"name": "Greta",
				},
			},
		}

		candidates := ExtractFamily("tenant-1", family)

		require.Len(t, candidates, 1)
		greta := candidates[0]
		assert.Equal(t, "Greta", greta.Entity.Name)
		assert.Empty(t, greta.AnchorName)
		assert.Equal(t, model.RelationFamilyMember, greta.Relation)
	})

	t.Run("Bare string value is the relative's name", func(t *testing.T) {
		family := map[string]interface{}{
			"daughter": "Lena",
		}

		candidates := ExtractFamily("tenant-1", family)

		require.Len(t, candidates, 1)
		assert.Equal(t, "Lena", candidates[0].Entity.Name)
		assert.Equal(t, model.RelationChild, candidates[0].Relation)
		assert.Equal(t, model.EntityTypePerson, candidates[0].Entity.Type)
		assert.Equal(t, "daughter", candidates[0].Entity.Properties["role"])
	})

	t.Run("Unknown keys are skipped", func(t *testing.T) {
		family := map[string]interface{}{
			"pets":     map[string]interface{}{"name": "Bello"},
			"daughter": map[string]interface{}{"name": "Lena"},
		}

		candidates := ExtractFamily("tenant-1", family)

		require.Len(t, candidates, 1)
		assert.Equal(t, "Lena", candidates[0].Entity.Name)
	})

	t.Run("Empty input yields no candidates", func(t *testing.T) {
		assert.Empty(t, ExtractFamily("tenant-1", nil))
		assert.Empty(t, ExtractFamily("tenant-1", map[string]interface{}{}))
	})
}
