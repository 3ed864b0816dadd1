package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/epitome-ai/fusion/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVector struct {
	hits []VectorHit
	err  error
	// calls records the limits used, to observe progressive deepening
	calls []int
}

func (f *fakeVector) Search(ctx context.Context, tenant string, topic string, collections []string, limit int, minSimilarity float64) ([]VectorHit, error) {
	f.calls = append(f.calls, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeTables struct {
	rows   map[string][]TableRow
	recent map[string][]TableRow
	err    error
}

func (f *fakeTables) MatchRows(ctx context.Context, tenant string, table string, columns []string, terms []string, limit int) ([]TableRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[table], nil
}

func (f *fakeTables) RecentRows(ctx context.Context, tenant string, table string, limit int) ([]TableRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent[table], nil
}

type fakeGraph struct {
	entities  []*model.Entity
	neighbors map[uuid.UUID][]*model.Neighbor
	nodes     map[uuid.UUID][]*model.TraversalNode
	err       error
}

func (f *fakeGraph) LookupByName(tenant string, name string, typeFilter *string, minSimilarity float64, limit int) ([]*model.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matches []*model.Entity
	for _, entity := range f.entities {
		if entity.NormalizedName() == name {
			matches = append(matches, entity)
		}
	}
	return matches, nil
}

func (f *fakeGraph) Neighbors(entityID uuid.UUID, direction string, relation *string, limit int) ([]*model.Neighbor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.neighbors[entityID], nil
}

func (f *fakeGraph) Traverse(entityID uuid.UUID, maxDepth int, limit int, relation *string) ([]*model.TraversalNode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.nodes[entityID], nil
}

type fakeProfile struct {
	doc model.Metadata
	err error
}

func (f *fakeProfile) Read(ctx context.Context, tenant string) (model.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type denyPolicy struct {
	denied map[string]bool
}

func (p denyPolicy) Evaluate(ctx context.Context, resource string, permission string) (Decision, error) {
	if p.denied[resource] {
		return Decision{Allowed: false, Reason: "consent revoked"}, nil
	}
	return Decision{Allowed: true}, nil
}

func testMeta() ([]model.TableMeta, []model.CollectionMeta) {
	tables := []model.TableMeta{
		{Name: "meals", Description: "what I ate", Columns: []model.ColumnMeta{{Name: "food", Type: "text"}}},
	}
	collections := []model.CollectionMeta{{Name: "journal", Description: "daily notes about meals"}}
	return tables, collections
}

func TestRetrieveHappyPath(t *testing.T) {
	tables, collections := testMeta()
	vector := &fakeVector{hits: []VectorHit{
		{ID: "1", Collection: "journal", Text: "Had dinner with Maria at the new ramen place", Similarity: 0.9, Confidence: 0.9, CreatedAt: time.Now()},
	}}
	tableFake := &fakeTables{rows: map[string][]TableRow{
		"meals": {{"food": "ramen", "created_at": "2025-08-01T19:00:00Z"}},
	}}
	orchestrator := NewOrchestrator(vector, tableFake, &fakeGraph{}, &fakeProfile{}, nil, nil)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "dinner with maria", model.BudgetMedium, tables, collections)

	require.NoError(t, err)
	assert.NotEmpty(t, result.Facts)
	assert.Contains(t, result.SourcesQueried, model.SourceTypeVector)
	assert.Contains(t, result.SourcesQueried, model.SourceTypeTable)
	assert.Equal(t, 1.0, result.Coverage)
	assert.Empty(t, result.Warnings)
}

func TestRetrieveAllRetrieversFailing(t *testing.T) {
	tables, collections := testMeta()
	failure := fmt.Errorf("store unavailable")
	orchestrator := NewOrchestrator(
		&fakeVector{err: failure},
		&fakeTables{err: failure},
		&fakeGraph{err: failure},
		&fakeProfile{err: failure},
		nil,
		nil,
	)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "dinner with maria", model.BudgetMedium, tables, collections)

	require.NoError(t, err)
	assert.Empty(t, result.Facts)
	assert.GreaterOrEqual(t, len(result.Warnings), 1)
	assert.Equal(t, 0.0, result.Coverage)
	assert.NotEmpty(t, result.UncertaintyReason)
}

func TestRetrieveConsentDenial(t *testing.T) {
	tables, collections := testMeta()
	vector := &fakeVector{hits: []VectorHit{
		{ID: "1", Collection: "journal", Text: "Maria visited Rome last spring", Similarity: 0.85, Confidence: 0.9},
	}}
	policy := denyPolicy{denied: map[string]bool{"profile": true, "graph": true}}
	orchestrator := NewOrchestrator(vector, &fakeTables{}, &fakeGraph{}, &fakeProfile{doc: model.Metadata{"diet": "vegan"}}, policy, nil)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "trips with maria", model.BudgetMedium, tables, collections)

	require.NoError(t, err)
	// Denied branches are skipped without a warning
	assert.NotContains(t, result.SourcesQueried, model.SourceTypeGraph)
	assert.NotContains(t, result.SourcesQueried, model.SourceTypeProfile)
	assert.Contains(t, result.MissingSources, model.SourceTypeGraph)
	assert.Contains(t, result.MissingSources, model.SourceTypeProfile)
	assert.Less(t, result.Coverage, 1.0)
	for _, warning := range result.Warnings {
		assert.NotContains(t, warning, "consent")
	}
}

func TestRetrieveProgressiveDeepening(t *testing.T) {
	tables, collections := testMeta()

	t.Run("Small budget with sparse results deepens the vector branch", func(t *testing.T) {
		vector := &fakeVector{hits: []VectorHit{
			{ID: "1", Collection: "journal", Text: "One lonely note", Similarity: 0.8, Confidence: 0.9},
		}}
		orchestrator := NewOrchestrator(vector, nil, nil, nil, nil, nil)

		result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "lonely note", model.BudgetSmall, tables, collections)

		require.NoError(t, err)
		require.Len(t, vector.calls, 2)
		small := model.BudgetFor(model.BudgetSmall)
		assert.Equal(t, small.MaxVectorResults, vector.calls[0])
		assert.Equal(t, small.NextLarger().MaxVectorResults, vector.calls[1])
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("Medium budget never deepens", func(t *testing.T) {
		vector := &fakeVector{}
		orchestrator := NewOrchestrator(vector, nil, nil, nil, nil, nil)

		_, err := orchestrator.Retrieve(context.Background(), "tenant-1", "lonely note", model.BudgetMedium, tables, collections)

		require.NoError(t, err)
		assert.Len(t, vector.calls, 1)
	})
}

func TestRetrieveGraphBranch(t *testing.T) {
	entityID := uuid.New()
	maria := &model.Entity{ID: entityID, Type: model.EntityTypePerson, Name: "Maria", MentionCount: 5, Similarity: 0.95}
	rome := &model.Entity{ID: uuid.New(), Type: model.EntityTypePlace, Name: "Rome", MentionCount: 2}

	graph := &fakeGraph{
		entities: []*model.Entity{maria},
		neighbors: map[uuid.UUID][]*model.Neighbor{
			entityID: {{
				Entity: rome,
				Edge:   &model.Edge{ID: uuid.New(), SourceID: entityID, TargetID: rome.ID, Relation: model.RelationVisited, Confidence: 0.8},
			}},
		},
	}
	orchestrator := NewOrchestrator(nil, nil, graph, nil, nil, nil)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "who is maria", model.BudgetMedium, nil, nil)

	require.NoError(t, err)
	require.NotEmpty(t, result.Facts)
	assert.Contains(t, result.Facts[0].Fact, "Maria")
	assert.Contains(t, result.Facts[0].Fact, "visited")
	assert.Contains(t, result.Facts[0].Fact, "Rome")
	assert.Equal(t, model.SourceTypeGraph, result.Facts[0].SourceType)
}

func TestRetrieveFamilyTermExpansion(t *testing.T) {
	profile := &fakeProfile{doc: model.Metadata{
		"family": map[string]interface{}{
			"daughter": map[string]interface{}{"name": "Lena", "age": float64(9)},
		},
	}}
	orchestrator := NewOrchestrator(nil, nil, nil, profile, nil, nil)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "my daughter's hobbies", model.BudgetMedium, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, model.IntentRelationship, result.Intent.Primary)
	assert.Contains(t, result.Intent.ExpandedTerms, "lena")
}

func TestRetrieveEmptyTopic(t *testing.T) {
	orchestrator := NewOrchestrator(nil, nil, nil, nil, nil, nil)

	result, err := orchestrator.Retrieve(context.Background(), "tenant-1", "", model.BudgetSmall, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Facts)
	assert.Equal(t, model.IntentGeneral, result.Intent.Primary)
	assert.NotEmpty(t, result.UncertaintyReason)
}
