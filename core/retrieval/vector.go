package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/epitome-ai/fusion/model"
)

// retrieveVector runs the semantic search branch. Confidence of each fact
// is the similarity scaled by the stored confidence.
func retrieveVector(ctx context.Context, searcher VectorSearcher, tenant string, plan *RetrievalPlan, limit int, minSimilarity float64) ([]model.RetrievedFact, error) {
	collections := make([]string, 0, len(plan.Collections))
	for _, collection := range plan.Collections {
		collections = append(collections, collection.Name)
	}

	hits, err := searcher.Search(ctx, tenant, plan.Topic, collections, limit, minSimilarity)
	if err != nil {
		return nil, err
	}

	facts := make([]model.RetrievedFact, 0, len(hits))
	for _, hit := range hits {
		fact := model.RetrievedFact{
			Fact:       hit.Text,
			SourceType: model.SourceTypeVector,
			SourceRef:  fmt.Sprintf("%v/%v", hit.Collection, hit.ID),
			Confidence: hit.Similarity * hit.Confidence,
		}
		if !hit.CreatedAt.IsZero() {
			fact.Timestamp = hit.CreatedAt.UTC().Format(time.RFC3339)
		}
		facts = append(facts, fact)
	}

	return facts, nil
}
