package retrieval

import (
	"github.com/epitome-ai/fusion/core/scoring"
	"github.com/epitome-ai/fusion/model"
)

// RetrievalPlan selects the branches a query will fan out to, bounded by
// the budget.
type RetrievalPlan struct {
	Topic       string                  `json:"topic"`
	Intent      model.ClassifiedIntent  `json:"intent"`
	Budget      model.Budget            `json:"budget"`
	Tables      []model.TableMeta       `json:"tables,omitempty"`
	Collections []model.CollectionMeta  `json:"collections,omitempty"`
	Graph       bool                    `json:"graph"`
	Profile     bool                    `json:"profile"`
	Scored      []model.ScoredSource    `json:"scored_sources"`
}

// PlannedSources returns the distinct source types the plan enables.
func (p *RetrievalPlan) PlannedSources() []model.SourceType {
	var sources []model.SourceType
	if len(p.Tables) > 0 {
		sources = append(sources, model.SourceTypeTable)
	}
	if len(p.Collections) > 0 {
		sources = append(sources, model.SourceTypeVector)
	}
	if p.Graph {
		sources = append(sources, model.SourceTypeGraph)
	}
	if p.Profile {
		sources = append(sources, model.SourceTypeProfile)
	}
	return sources
}

// BuildRetrievalPlan scores all candidate sources and selects those above
// the selection threshold: tables capped at the budget's table limit,
// collections uncapped, graph and profile enabled by their ladder scores.
func BuildRetrievalPlan(topic string, classified model.ClassifiedIntent, budget model.Budget, tables []model.TableMeta, collections []model.CollectionMeta, profile model.Metadata) *RetrievalPlan {
	scored := scoring.ScoreSourceRelevance(topic, classified, tables, collections, profile)

	plan := &RetrievalPlan{
		Topic:  topic,
		Intent: classified,
		Budget: budget,
		Scored: scored,
	}

	tablesByName := make(map[string]model.TableMeta, len(tables))
	for _, table := range tables {
		tablesByName[table.Name] = table
	}
	collectionsByName := make(map[string]model.CollectionMeta, len(collections))
	for _, collection := range collections {
		collectionsByName[collection.Name] = collection
	}

	threshold := scoring.MinSelectableScore()
	for _, source := range scored {
		if source.Relevance < threshold {
			continue
		}
		switch source.SourceType {
		case model.SourceTypeTable:
			if len(plan.Tables) < budget.MaxTables {
				plan.Tables = append(plan.Tables, tablesByName[source.SourceID])
			}
		case model.SourceTypeVector:
			plan.Collections = append(plan.Collections, collectionsByName[source.SourceID])
		case model.SourceTypeGraph:
			plan.Graph = true
		case model.SourceTypeProfile:
			plan.Profile = true
		}
	}

	return plan
}
