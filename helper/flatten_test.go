package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	t.Run("Flatten nested document", func(t *testing.T) {
		doc := map[string]interface{}{
			"name": "Alice",
			"family": map[string]interface{}{
				"wife": map[string]interface{}{
					"name": "Maria",
				},
			},
		}

		leaves := Flatten(doc, 5)

		require.Len(t, leaves, 2)
		assert.Equal(t, "family.wife.name", leaves[0].Path)
		assert.Equal(t, "Maria", leaves[0].Value)
		assert.Equal(t, 3, leaves[0].Depth)
		assert.Equal(t, "name", leaves[1].Path)
		assert.Equal(t, "Alice", leaves[1].Value)
	})

	t.Run("Depth limit cuts off deep nesting", func(t *testing.T) {
		doc := map[string]interface{}{
			"a": map[string]interface{}{
				"b": map[string]interface{}{
					"c": "deep",
				},
			},
		}

		leaves := Flatten(doc, 2)

		assert.Empty(t, leaves)
	})

	t.Run("Scalar arrays collapse to one joined leaf", func(t *testing.T) {
		doc := map[string]interface{}{
			"hobbies": []interface{}{"hiking", "cooking"},
		}

		leaves := Flatten(doc, 3)

		require.Len(t, leaves, 1)
		assert.Equal(t, "hobbies", leaves[0].Path)
		assert.Equal(t, "hiking, cooking", leaves[0].Value)
	})

	t.Run("Numbers format without trailing zeros", func(t *testing.T) {
		doc := map[string]interface{}{
			"age":    float64(34),
			"height": 1.75,
		}

		leaves := Flatten(doc, 1)

		require.Len(t, leaves, 2)
		assert.Equal(t, "34", leaves[0].Value)
		assert.Equal(t, "1.75", leaves[1].Value)
	})

	t.Run("Null leaves and empty documents are skipped", func(t *testing.T) {
		assert.Empty(t, Flatten(nil, 3))
		assert.Empty(t, Flatten(map[string]interface{}{"gone": nil}, 3))
	})

	t.Run("Deterministic key order", func(t *testing.T) {
		doc := map[string]interface{}{"b": "2", "a": "1", "c": "3"}

		leaves := Flatten(doc, 1)

		require.Len(t, leaves, 3)
		assert.Equal(t, "a", leaves[0].Path)
		assert.Equal(t, "b", leaves[1].Path)
		assert.Equal(t, "c", leaves[2].Path)
	})
}
