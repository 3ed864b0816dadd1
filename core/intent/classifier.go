package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/epitome-ai/fusion/model"
)

// Keyword families tested in fixed priority order. The first family with a
// match decides the primary intent.
var (
	timelineKeywords = []string{
		"when", "yesterday", "today", "tomorrow", "last week", "last month",
		"last year", "this week", "this month", "recently", "history",
		"timeline", "ago", "before", "after", "since", "latest", "previous",
	}
	preferenceKeywords = []string{
		"favorite", "favourite", "prefer", "preference", "like best",
		"usually", "always", "never", "habit", "routine", "typically",
	}
	relationshipKeywords = []string{
		"who is", "related", "relationship", "family", "friend", "wife",
		"husband", "partner", "mother", "father", "daughter", "son",
		"sister", "brother", "colleague", "knows", "married",
	}
	quantitativeKeywords = []string{
		"how many", "how much", "count", "total", "average", "sum",
		"number of", "times", "often", "frequency", "most", "least",
	}
)

// roleRelations maps a possessive role ("my daughter") to the relation hint
// seeded for the relationship intent.
var roleRelations = map[string]string{
	"wife":        model.RelationSpouse,
	"husband":     model.RelationSpouse,
	"partner":     model.RelationSpouse,
	"mother":      model.RelationParent,
	"father":      model.RelationParent,
	"mom":         model.RelationParent,
	"dad":         model.RelationParent,
	"daughter":    model.RelationChild,
	"son":         model.RelationChild,
	"sister":      model.RelationSibling,
	"brother":     model.RelationSibling,
	"grandmother": model.RelationFamilyMember,
	"grandfather": model.RelationFamilyMember,
	"grandma":     model.RelationFamilyMember,
	"grandpa":     model.RelationFamilyMember,
	"aunt":        model.RelationFamilyMember,
	"uncle":       model.RelationFamilyMember,
	"cousin":      model.RelationFamilyMember,
	"friend":      model.RelationFriend,
	"colleague":   model.RelationWorksAt,
	"boss":        model.RelationWorksAt,
	"doctor":      model.RelationFamilyMember,
}

// synonymClusters expands a matched token to its canonical key plus the
// remaining cluster members.
var synonymClusters = map[string][]string{
	"food":     {"meal", "eat", "ate", "eating", "dinner", "lunch", "breakfast", "dish", "restaurant", "cuisine"},
	"travel":   {"trip", "vacation", "visit", "visited", "journey", "flight", "holiday", "destination"},
	"family":   {"relative", "relatives", "parent", "parents", "sibling", "siblings", "kid", "kids"},
	"exercise": {"workout", "training", "gym", "run", "running", "sport", "fitness"},
	"health":   {"medication", "medicine", "pill", "doctor", "symptom", "illness"},
	"work":     {"job", "career", "office", "employer", "company", "profession"},
}

// Cue families for hints, independent of the primary intent.
var (
	personCues       = []string{"who", "person", "people", "wife", "husband", "daughter", "son", "mother", "father", "friend", "colleague", "name"}
	organizationCues = []string{"company", "employer", "organization", "school", "university", "team"}
	placeCues        = []string{"where", "place", "city", "country", "location", "restaurant", "address", "live", "lives"}

	workRelationCues     = []string{"work", "works", "job", "employer", "colleague", "boss"}
	friendRelationCues   = []string{"friend", "friends", "buddy"}
	familyRelationCues   = []string{"family", "wife", "husband", "mother", "father", "daughter", "son", "sister", "brother", "relative"}
	locationRelationCues = []string{"live", "lives", "lived", "moved", "where", "located"}
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "do": true, "does": true, "did": true,
	"i": true, "my": true, "me": true, "we": true, "our": true, "you": true,
	"it": true, "of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "and": true, "or": true, "with": true, "about": true,
	"what": true, "which": true, "that": true, "this": true, "s": true,
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]+`)
	possessiveRole  = regexp.MustCompile(`\bmy\s+([a-z]+)`)
)

// Classify maps a free-text topic to a primary intent, expanded search
// terms, and entity/relation hints. Classification is deterministic: the
// same topic always yields the same result.
func Classify(topic string) model.ClassifiedIntent {
	normalized := normalize(topic)
	tokens := meaningfulTokens(normalized)

	classified := model.ClassifiedIntent{
		Primary:         primaryIntent(normalized, tokens),
		ExpandedTerms:   expandTerms(tokens),
		EntityTypeHints: entityTypeHints(normalized),
		RelationHints:   relationHints(normalized),
	}

	// A possessive role ("my daughter") unconditionally overrides the
	// primary intent and seeds person plus role-specific relation hints.
	if role, ok := detectPossessiveRole(normalized); ok {
		classified.Primary = model.IntentRelationship
		classified.EntityTypeHints = appendUnique(classified.EntityTypeHints, model.EntityTypePerson)
		classified.RelationHints = appendUnique(classified.RelationHints, roleRelations[role])
	}

	return classified
}

// DetectRole reports the possessive role named in the topic ("my daughter"
// yields "daughter"), if any. Callers use it to resolve the role to the
// actual family member's name from profile context.
func DetectRole(topic string) (string, bool) {
	return detectPossessiveRole(normalize(topic))
}

func normalize(topic string) string {
	lowered := strings.ToLower(strings.TrimSpace(topic))
	cleaned := nonAlphanumeric.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

func primaryIntent(normalized string, tokens []string) model.Intent {
	families := []struct {
		intent   model.Intent
		keywords []string
	}{
		{model.IntentTimeline, timelineKeywords},
		{model.IntentPreference, preferenceKeywords},
		{model.IntentRelationship, relationshipKeywords},
		{model.IntentQuantitative, quantitativeKeywords},
	}
	for _, family := range families {
		for _, keyword := range family.keywords {
			if containsPhrase(normalized, keyword) {
				return family.intent
			}
		}
	}
	if len(tokens) >= 2 {
		return model.IntentFactual
	}
	return model.IntentGeneral
}

func detectPossessiveRole(normalized string) (string, bool) {
	matches := possessiveRole.FindAllStringSubmatch(normalized, -1)
	for _, match := range matches {
		role := singular(match[1])
		if _, ok := roleRelations[role]; ok {
			return role, true
		}
	}
	return "", false
}

func meaningfulTokens(normalized string) []string {
	var tokens []string
	for _, token := range strings.Fields(normalized) {
		token = singular(token)
		if stopwords[token] || len(token) < 2 {
			continue
		}
		tokens = appendUnique(tokens, token)
	}
	return tokens
}

func expandTerms(tokens []string) []string {
	terms := make([]string, 0, len(tokens))
	terms = append(terms, tokens...)

	for _, token := range tokens {
		for canonical, synonyms := range synonymClusters {
			if token != canonical && !containsString(synonyms, token) {
				continue
			}
			terms = appendUnique(terms, canonical)
			for _, synonym := range synonyms {
				if synonym != token {
					terms = appendUnique(terms, synonym)
				}
			}
		}
	}

	sort.Strings(terms[len(tokens):])
	return terms
}

func entityTypeHints(normalized string) []string {
	var hints []string
	if matchesAny(normalized, personCues) {
		hints = appendUnique(hints, model.EntityTypePerson)
	}
	if matchesAny(normalized, organizationCues) {
		hints = appendUnique(hints, model.EntityTypeOrganization)
	}
	if matchesAny(normalized, placeCues) {
		hints = appendUnique(hints, model.EntityTypePlace)
	}
	return hints
}

func relationHints(normalized string) []string {
	var hints []string
	if matchesAny(normalized, workRelationCues) {
		hints = appendUnique(hints, model.RelationWorksAt)
	}
	if matchesAny(normalized, friendRelationCues) {
		hints = appendUnique(hints, model.RelationFriend)
	}
	if matchesAny(normalized, familyRelationCues) {
		hints = appendUnique(hints, model.RelationFamilyMember)
	}
	if matchesAny(normalized, locationRelationCues) {
		hints = appendUnique(hints, model.RelationLivesIn)
	}
	return hints
}

// singular applies a plain plural-strip for lookup purposes. Irregular
// plurals pass through unchanged.
func singular(token string) string {
	if len(token) > 3 && strings.HasSuffix(token, "ies") {
		return token[:len(token)-3] + "y"
	}
	if len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}

func containsPhrase(normalized, phrase string) bool {
	if strings.Contains(phrase, " ") {
		return strings.Contains(normalized, phrase)
	}
	for _, token := range strings.Fields(normalized) {
		if token == phrase || singular(token) == phrase {
			return true
		}
	}
	return false
}

func matchesAny(normalized string, keywords []string) bool {
	for _, keyword := range keywords {
		if containsPhrase(normalized, keyword) {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func appendUnique(values []string, value string) []string {
	if containsString(values, value) {
		return values
	}
	return append(values, value)
}
