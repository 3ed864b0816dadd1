package fuse

import (
	"sort"
	"strings"

	"github.com/epitome-ai/fusion/model"
)

const (
	corroborationBoost = 0.1
	relationHintBoost  = 0.05
	confidenceCap      = 0.95
	// Containment dedup only applies above this length. Known limitation:
	// two unrelated facts sharing a long common substring can still merge.
	containmentFloor = 20
)

type fusedFact struct {
	fact        model.RetrievedFact
	normalized  string
	sourceTypes map[model.SourceType]bool
}

// FuseFacts normalizes, deduplicates, corroboration-boosts and ranks a fact
// set. Facts with the same normalized text, or where one normalized text
// contains the other and both are longer than 20 characters, merge into
// one fact keeping the higher-confidence phrasing. Facts corroborated by
// two or more distinct source types get a confidence boost. The function is
// idempotent and never fails on empty input.
func FuseFacts(facts []model.RetrievedFact, maxFacts int, classified *model.ClassifiedIntent) []model.RetrievedFact {
	var fused []*fusedFact
	for _, fact := range facts {
		normalized := normalizeFact(fact.Fact)
		if normalized == "" {
			continue
		}

		existing := findDuplicate(fused, normalized)
		if existing == nil {
			fused = append(fused, &fusedFact{
				fact:        fact,
				normalized:  normalized,
				sourceTypes: map[model.SourceType]bool{fact.SourceType: true},
			})
			continue
		}

		existing.sourceTypes[fact.SourceType] = true
		if fact.Confidence > existing.fact.Confidence {
			existing.fact.Fact = fact.Fact
			existing.fact.SourceRef = fact.SourceRef
			existing.fact.SourceType = fact.SourceType
			existing.fact.Confidence = fact.Confidence
			existing.normalized = normalizeFact(fact.Fact)
		}
		if fact.Timestamp > existing.fact.Timestamp {
			existing.fact.Timestamp = fact.Timestamp
		}
	}

	results := make([]model.RetrievedFact, 0, len(fused))
	for _, f := range fused {
		fact := f.fact
		if len(f.sourceTypes) >= 2 {
			fact.Confidence = capConfidence(fact.Confidence + corroborationBoost)
		}
		if classified != nil && matchesRelationHint(f.normalized, classified.RelationHints) {
			fact.Confidence = capConfidence(fact.Confidence + relationHintBoost)
		}
		results = append(results, fact)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		// Facts without a timestamp sort last
		if (results[i].Timestamp == "") != (results[j].Timestamp == "") {
			return results[i].Timestamp != ""
		}
		return results[i].Timestamp > results[j].Timestamp
	})

	if maxFacts > 0 && len(results) > maxFacts {
		results = results[:maxFacts]
	}

	return results
}

func findDuplicate(fused []*fusedFact, normalized string) *fusedFact {
	for _, existing := range fused {
		if existing.normalized == normalized {
			return existing
		}
		if len(existing.normalized) > containmentFloor && len(normalized) > containmentFloor {
			if strings.Contains(existing.normalized, normalized) || strings.Contains(normalized, existing.normalized) {
				return existing
			}
		}
	}
	return nil
}

func normalizeFact(fact string) string {
	return strings.Join(strings.Fields(strings.ToLower(fact)), " ")
}

func matchesRelationHint(normalized string, hints []string) bool {
	for _, hint := range hints {
		cleaned := strings.ReplaceAll(strings.ToLower(hint), "_", " ")
		if cleaned != "" && strings.Contains(normalized, cleaned) {
			return true
		}
	}
	return false
}

func capConfidence(confidence float64) float64 {
	if confidence > confidenceCap {
		return confidenceCap
	}
	return confidence
}
