package extraction

import (
	"sort"
	"strings"

	"github.com/epitome-ai/fusion/model"
)

const familyConfidence = 0.85

// familyRoles maps a role key in the profile family tree to the relation of
// the edge from the anchoring relative.
var familyRoles = map[string]string{
	"wife":        model.RelationSpouse,
	"husband":     model.RelationSpouse,
	"partner":     model.RelationSpouse,
	"spouse":      model.RelationSpouse,
	"mother":      model.RelationParent,
	"father":      model.RelationParent,
	"daughter":    model.RelationChild,
	"son":         model.RelationChild,
	"sister":      model.RelationSibling,
	"brother":     model.RelationSibling,
	"grandmother": model.RelationFamilyMember,
	"grandfather": model.RelationFamilyMember,
	"aunt":        model.RelationFamilyMember,
	"uncle":       model.RelationFamilyMember,
	"cousin":      model.RelationFamilyMember,
}

// ExtractFamily walks a nested family structure from the profile document
// and yields one person candidate per named relative. Each candidate is
// anchored at the nearest enclosing named relative, so "wife.mother"
// attaches to the wife, not the profile owner. When no named relative
// encloses a nested person, the edge falls back to the owner with the
// relation collapsed to a generic family relation.
func ExtractFamily(tenant string, family map[string]interface{}) []model.Candidate {
	var candidates []model.Candidate
	walkFamily(tenant, family, "", "", 0, &candidates)
	return candidates
}

func walkFamily(tenant string, node map[string]interface{}, anchorName string, anchorRole string, depth int, candidates *[]model.Candidate) {
	if depth > 6 {
		return
	}

	roles := make([]string, 0, len(node))
	for role := range node {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		relation, ok := familyRoles[strings.ToLower(role)]
		if !ok {
			continue
		}

		member, ok := node[role].(map[string]interface{})
		if !ok {
			// A bare string is the relative's name
			if name, isName := node[role].(string); isName && name != "" {
				*candidates = append(*candidates, familyCandidate(tenant, name, role, relation, anchorName, depth))
			}
			continue
		}

		name, _ := member["name"].(string)
		name = strings.TrimSpace(name)

		if name != "" {
			*candidates = append(*candidates, familyCandidate(tenant, name, role, relation, anchorName, depth))
		}

		// An unnamed relative cannot anchor; descendants keep the current
		// anchor and collapse to the generic family relation.
		nextAnchor := anchorName
		if name != "" {
			nextAnchor = name
		}
		walkFamily(tenant, member, nextAnchor, role, depth+1, candidates)
	}
}

func familyCandidate(tenant string, name string, role string, relation string, anchorName string, depth int) model.Candidate {
	// In-law collapse: a relative nested below another relative but
	// anchored at the owner (no enclosing named relative) keeps only the
	// generic family relation.
	if anchorName == "" && depth > 0 {
		relation = model.RelationFamilyMember
	}

	return model.Candidate{
		Entity: &model.Entity{
			Tenant:     tenant,
			Type:       model.EntityTypePerson,
			Name:       name,
			Properties: model.Metadata{"role": role},
			Confidence: familyConfidence,
		},
		Relation:   relation,
		AnchorName: anchorName,
		AnchorType: model.EntityTypePerson,
		Evidence: model.Evidence{
			Type:       "profile",
			Source:     "family",
			Confidence: familyConfidence,
		},
	}
}
