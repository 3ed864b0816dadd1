package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/epitome-ai/fusion/model"
	"golang.org/x/sync/errgroup"
)

const (
	seedMinSimilarity      = 0.35
	neighborBaseConfidence = 0.65
	traversalConfidence    = 0.5
	hintMatchBoost         = 0.1
	personSeedBoost        = 0.15
	establishedSeedBoost   = 0.1
	neighborsPerSeed       = 10
	traversalNodesPerSeed  = 15
)

// retrieveGraph resolves seed entities by fuzzy name match on the expanded
// term set, then fans out per seed: one-hop neighbors with the relation
// surfaced in the fact text, plus a bounded multi-hop traversal for nodes
// beyond depth one. Per-seed lookups run concurrently and settle
// independently.
func retrieveGraph(ctx context.Context, reader GraphReader, tenant string, plan *RetrievalPlan) ([]model.RetrievedFact, error) {
	seeds, err := resolveSeeds(reader, tenant, plan)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var facts []model.RetrievedFact

	group, _ := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		group.Go(func() error {
			seedFacts := collectSeedFacts(reader, seed, plan)
			mu.Lock()
			facts = append(facts, seedFacts...)
			mu.Unlock()
			return nil
		})
	}
	// Branch errors are swallowed per seed, the group only orders the wait
	_ = group.Wait()

	return facts, nil
}

// resolveSeeds fuzzy-matches topic terms against entity names, rank-boosts
// person entities for relationship intent and well-established entities,
// and keeps the top seeds within the budget.
func resolveSeeds(reader GraphReader, tenant string, plan *RetrievalPlan) ([]*model.Entity, error) {
	seen := make(map[string]bool)
	var seeds []*model.Entity
	var firstErr error

	terms := append([]string{plan.Topic}, plan.Intent.ExpandedTerms...)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if len(term) < 3 {
			continue
		}
		matches, err := reader.LookupByName(tenant, term, nil, seedMinSimilarity, plan.Budget.MaxGraphSeeds)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, match := range matches {
			if seen[match.ID.String()] {
				continue
			}
			seen[match.ID.String()] = true
			seeds = append(seeds, match)
		}
	}

	if len(seeds) == 0 && firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(seeds, func(i, j int) bool {
		return seedRank(seeds[i], plan.Intent) > seedRank(seeds[j], plan.Intent)
	})

	if len(seeds) > plan.Budget.MaxGraphSeeds {
		seeds = seeds[:plan.Budget.MaxGraphSeeds]
	}
	return seeds, nil
}

func seedRank(entity *model.Entity, classified model.ClassifiedIntent) float64 {
	rank := entity.Similarity
	if classified.Primary == model.IntentRelationship && entity.Type == model.EntityTypePerson {
		rank += personSeedBoost
	}
	if entity.WellEstablished() {
		rank += establishedSeedBoost
	}
	return rank
}

func collectSeedFacts(reader GraphReader, seed *model.Entity, plan *RetrievalPlan) []model.RetrievedFact {
	var facts []model.RetrievedFact

	neighbors, err := reader.Neighbors(seed.ID, "both", nil, neighborsPerSeed)
	if err == nil {
		for _, neighbor := range neighbors {
			confidence := neighborBaseConfidence * neighbor.Edge.Confidence
			if plan.Intent.HasRelationHint(neighbor.Edge.Relation) {
				confidence = capGraphConfidence(confidence + hintMatchBoost)
			}
			fact := model.RetrievedFact{
				Fact:       describeNeighbor(seed, neighbor),
				SourceType: model.SourceTypeGraph,
				SourceRef:  fmt.Sprintf("edge/%v", neighbor.Edge.ID),
				Confidence: confidence,
			}
			if !neighbor.Edge.LastSeen.IsZero() {
				fact.Timestamp = neighbor.Edge.LastSeen.UTC().Format(time.RFC3339)
			}
			facts = append(facts, fact)
		}
	}

	if plan.Budget.MaxGraphHops > 1 {
		nodes, err := reader.Traverse(seed.ID, plan.Budget.MaxGraphHops, traversalNodesPerSeed, nil)
		if err == nil {
			for _, node := range nodes {
				if node.Depth <= 1 {
					continue
				}
				fact := model.RetrievedFact{
					Fact:       fmt.Sprintf("%v is connected to %v (%v, %v hops away)", seed.Name, node.Entity.Name, node.Entity.Type, node.Depth),
					SourceType: model.SourceTypeGraph,
					SourceRef:  fmt.Sprintf("entity/%v", node.Entity.ID),
					Confidence: traversalConfidence / float64(node.Depth),
				}
				if !node.Entity.LastSeen.IsZero() {
					fact.Timestamp = node.Entity.LastSeen.UTC().Format(time.RFC3339)
				}
				facts = append(facts, fact)
			}
		}
	}

	return facts
}

// describeNeighbor surfaces the edge relation in the fact text, oriented by
// the edge direction.
func describeNeighbor(seed *model.Entity, neighbor *model.Neighbor) string {
	relation := strings.ReplaceAll(neighbor.Edge.Relation, "_", " ")
	if neighbor.Edge.SourceID == seed.ID {
		return fmt.Sprintf("%v %v %v (%v)", seed.Name, relation, neighbor.Entity.Name, neighbor.Entity.Type)
	}
	return fmt.Sprintf("%v %v %v (%v)", neighbor.Entity.Name, relation, seed.Name, seed.Type)
}

func capGraphConfidence(confidence float64) float64 {
	if confidence > 0.95 {
		return 0.95
	}
	return confidence
}
