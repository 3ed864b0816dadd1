package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
)

const (
	profileFlattenDepth   = 5
	profileFactConfidence = 0.75
	maxProfileFacts       = 12
)

// retrieveProfile flattens the tenant's profile document and keeps entries
// whose path or value matches the expanded term set.
func retrieveProfile(ctx context.Context, reader ProfileReader, tenant string, plan *RetrievalPlan) ([]model.RetrievedFact, error) {
	profile, err := reader.Read(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(profile) == 0 {
		return nil, nil
	}

	terms := plan.Intent.ExpandedTerms
	var facts []model.RetrievedFact
	for _, leaf := range helper.Flatten(profile, profileFlattenDepth) {
		if !leafMatches(leaf, terms) {
			continue
		}
		facts = append(facts, model.RetrievedFact{
			Fact:       fmt.Sprintf("%v: %v", strings.ReplaceAll(leaf.Path, ".", " "), leaf.Value),
			SourceType: model.SourceTypeProfile,
			SourceRef:  fmt.Sprintf("profile/%v", leaf.Path),
			Confidence: profileFactConfidence,
		})
		if len(facts) >= maxProfileFacts {
			break
		}
	}

	return facts, nil
}

func leafMatches(leaf helper.PathValue, terms []string) bool {
	loweredPath := strings.ToLower(leaf.Path)
	loweredValue := strings.ToLower(leaf.Value)
	for _, term := range terms {
		term = strings.ToLower(term)
		if len(term) < 3 {
			continue
		}
		if strings.Contains(loweredPath, term) || strings.Contains(loweredValue, term) {
			return true
		}
	}
	return false
}
