package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/epitome-ai/fusion/model"
)

// Match score bands for table and collection names.
const (
	scoreExactName      = 0.9
	scoreSubstringName  = 0.7
	scoreDescription    = 0.5
	scoreDefault        = 0.25
	maxIntentNudge      = 0.1
	minSelectableScore  = 0.3
	profilePreferBoost  = 0.1
	quantitativeTabBump = 0.1
	timelineTabBump     = 0.05
)

// ScoreSourceRelevance ranks every candidate source for a topic. Graph and
// profile always appear in the output; tables and collections are scored
// individually. The result is sorted by score descending, ties keep input
// order.
func ScoreSourceRelevance(topic string, classified model.ClassifiedIntent, tables []model.TableMeta, collections []model.CollectionMeta, profile model.Metadata) []model.ScoredSource {
	terms := matchTerms(topic, classified)

	var scored []model.ScoredSource
	for _, table := range tables {
		score, reason := scoreName(table.Name, table.Description, terms)
		score = clamp01(score + tableNudge(classified.Primary))
		scored = append(scored, model.ScoredSource{
			SourceType: model.SourceTypeTable,
			SourceID:   table.Name,
			Relevance:  score,
			Reason:     reason,
		})
	}

	for _, collection := range collections {
		score, reason := scoreName(collection.Name, collection.Description, terms)
		scored = append(scored, model.ScoredSource{
			SourceType: model.SourceTypeVector,
			SourceID:   collection.Name,
			Relevance:  clamp01(score),
			Reason:     reason,
		})
	}

	graphScore, graphReason := scoreGraph(classified)
	scored = append(scored, model.ScoredSource{
		SourceType: model.SourceTypeGraph,
		SourceID:   "graph",
		Relevance:  graphScore,
		Reason:     graphReason,
	})

	profileScore, profileReason := scoreProfile(classified, terms, profile)
	scored = append(scored, model.ScoredSource{
		SourceType: model.SourceTypeProfile,
		SourceID:   "profile",
		Relevance:  profileScore,
		Reason:     profileReason,
	})

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	return scored
}

// MinSelectableScore is the threshold below which a source is left out of
// the retrieval plan.
func MinSelectableScore() float64 {
	return minSelectableScore
}

// matchTerms is the union of the raw topic, its tokens and the expanded
// term set, all lowercased.
func matchTerms(topic string, classified model.ClassifiedIntent) []string {
	var terms []string
	lowered := strings.ToLower(strings.TrimSpace(topic))
	if lowered != "" {
		terms = append(terms, lowered)
		terms = append(terms, strings.Fields(lowered)...)
	}
	for _, term := range classified.ExpandedTerms {
		terms = append(terms, strings.ToLower(term))
	}
	return terms
}

func scoreName(name, description string, terms []string) (float64, string) {
	loweredName := strings.ToLower(name)
	loweredDescription := strings.ToLower(description)

	for _, term := range terms {
		if term == loweredName {
			return scoreExactName, fmt.Sprintf("name matches %q", term)
		}
	}
	for _, term := range terms {
		if nameOverlaps(loweredName, term) {
			return scoreSubstringName, fmt.Sprintf("name overlaps %q", term)
		}
	}
	if loweredDescription != "" {
		for _, term := range terms {
			if len(term) >= 3 && strings.Contains(loweredDescription, term) {
				return scoreDescription, fmt.Sprintf("description mentions %q", term)
			}
		}
	}
	return scoreDefault, "no direct match"
}

// nameOverlaps matches a term against the name's tokens at word boundaries.
// Terms shorter than four characters never match here, so short expanded
// synonyms cannot light up unrelated names.
func nameOverlaps(loweredName, term string) bool {
	if len(term) < 4 {
		return false
	}
	tokens := strings.FieldsFunc(loweredName, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for _, token := range tokens {
		if strings.HasPrefix(token, term) {
			return true
		}
		if len(token) >= 4 && strings.HasPrefix(term, token) {
			return true
		}
	}
	return false
}

func tableNudge(primary model.Intent) float64 {
	switch primary {
	case model.IntentQuantitative:
		return quantitativeTabBump
	case model.IntentTimeline:
		return timelineTabBump
	default:
		return 0
	}
}

// scoreGraph applies the fixed graph ladder. The graph is never excluded
// outright, so the floor stays above zero.
func scoreGraph(classified model.ClassifiedIntent) (float64, string) {
	switch {
	case classified.Primary == model.IntentRelationship:
		return 0.9, "relationship intent"
	case len(classified.RelationHints) > 0:
		return 0.7, "relation hints present"
	case len(classified.EntityTypeHints) > 0:
		return 0.6, "entity type hints present"
	default:
		return 0.4, "graph baseline"
	}
}

func scoreProfile(classified model.ClassifiedIntent, terms []string, profile model.Metadata) (float64, string) {
	score, reason := profileMatch(terms, profile)
	if classified.Primary == model.IntentPreference {
		score = clamp01(score + profilePreferBoost)
		reason += ", preference intent"
	}
	return score, reason
}

func profileMatch(terms []string, profile model.Metadata) (float64, string) {
	if len(profile) == 0 {
		return 0.3, "profile baseline"
	}

	best := 0.3
	reason := "profile baseline"
	for key, value := range profile {
		loweredKey := strings.ToLower(key)
		for _, term := range terms {
			if term == loweredKey && best < 0.8 {
				best = 0.8
				reason = fmt.Sprintf("key matches %q", term)
			}
			if len(term) >= 3 && strings.Contains(loweredKey, term) && best < 0.6 {
				best = 0.6
				reason = fmt.Sprintf("key overlaps %q", term)
			}
		}
		if text, ok := value.(string); ok {
			loweredValue := strings.ToLower(text)
			for _, term := range terms {
				if len(term) >= 3 && strings.Contains(loweredValue, term) && best < 0.5 {
					best = 0.5
					reason = fmt.Sprintf("value mentions %q", term)
				}
			}
		}
	}
	return best, reason
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
