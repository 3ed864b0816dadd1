package extraction

import (
	"fmt"
	"log/slog"

	"github.com/epitome-ai/fusion/database"
	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
)

// Fuzzy name similarity above which a candidate reinforces an existing
// entity instead of creating a new one.
const dedupThreshold = 0.55

// Deduper resolves extracted candidates against the existing graph and
// writes the surviving entities and edges.
type Deduper struct {
	entities database.EntitiesDBHandlerFunctions
	edges    database.EdgesDBHandlerFunctions
	logger   *slog.Logger
}

// NewDeduper creates a new deduplicating graph writer.
func NewDeduper(entities database.EntitiesDBHandlerFunctions, edges database.EdgesDBHandlerFunctions, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{
		entities: entities,
		edges:    edges,
		logger:   logger,
	}
}

// UpsertCandidate inserts the candidate entity or, when a same-typed entity
// with a fuzzy-equal name exists, reinforces it: mention count and last
// seen advance, candidate properties fill gaps without overwriting.
func (d *Deduper) UpsertCandidate(tenant string, candidate model.Candidate) (*model.Entity, error) {
	if candidate.Entity == nil || candidate.Entity.Name == "" {
		return nil, helper.NewError("candidate validation", fmt.Errorf("candidate has no entity name"))
	}

	entityType := candidate.Entity.Type
	matches, err := d.entities.SelectEntitiesByFuzzyName(tenant, candidate.Entity.NormalizedName(), &entityType, dedupThreshold, 1)
	if err != nil {
		return nil, helper.NewError("fuzzy lookup", err)
	}

	if len(matches) > 0 {
		reinforced, err := d.entities.ReinforceEntity(matches[0].ID, candidate.Entity.Properties, candidate.Entity.Confidence)
		if err != nil {
			return nil, helper.NewError("reinforce entity", err)
		}
		return reinforced, nil
	}

	entity := &model.Entity{
		Tenant:     tenant,
		Type:       entityType,
		Name:       candidate.Entity.Name,
		Properties: candidate.Entity.Properties,
		Confidence: candidate.Entity.Confidence,
	}
	err = d.entities.InsertEntity(entity)
	if err != nil {
		// A concurrent extraction may have created the entity between the
		// lookup and the insert; reinforce the existing row instead.
		existing, lookupErr := d.entities.SelectEntityByName(tenant, entityType, entity.Name)
		if lookupErr != nil {
			return nil, helper.NewError("insert entity", err)
		}
		reinforced, reinforceErr := d.entities.ReinforceEntity(existing.ID, entity.Properties, entity.Confidence)
		if reinforceErr != nil {
			return nil, helper.NewError("reinforce entity", reinforceErr)
		}
		return reinforced, nil
	}

	return entity, nil
}

// Apply writes an extraction result to the graph: every candidate entity is
// upserted, then edges are drawn from each candidate's anchor (a named
// relative, or the record owner) with idempotent strengthening.
func (d *Deduper) Apply(tenant string, ownerName string, result *model.ExtractionResult) error {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	if ownerName == "" {
		ownerName = "me"
	}

	owner, err := d.resolveAnchor(tenant, ownerName)
	if err != nil {
		return helper.NewError("resolve owner", err)
	}

	for _, candidate := range result.Candidates {
		entity, err := d.UpsertCandidate(tenant, candidate)
		if err != nil {
			return helper.NewError("upsert candidate", err)
		}

		if candidate.Relation == "" {
			continue
		}

		anchor := owner
		if candidate.AnchorName != "" {
			anchor, err = d.resolveAnchor(tenant, candidate.AnchorName)
			if err != nil {
				return helper.NewError("resolve anchor", err)
			}
		}
		if anchor.ID == entity.ID {
			continue
		}

		edge := &model.Edge{
			Tenant:     tenant,
			SourceID:   anchor.ID,
			TargetID:   entity.ID,
			Relation:   candidate.Relation,
			Weight:     1,
			Confidence: candidate.Evidence.Confidence,
			Evidence:   model.EvidenceList{candidate.Evidence},
		}
		err = d.edges.UpsertEdge(edge)
		if err != nil {
			return helper.NewError("upsert edge", err)
		}
	}

	d.logger.Info("Applied extraction result",
		slog.String("tenant", tenant),
		slog.Int("candidates", len(result.Candidates)),
		slog.String("method", string(result.Method)))

	return nil
}

// resolveAnchor finds or creates the person entity edges start from.
func (d *Deduper) resolveAnchor(tenant string, name string) (*model.Entity, error) {
	existing, err := d.entities.SelectEntityByName(tenant, model.EntityTypePerson, name)
	if err == nil {
		return existing, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	anchor := &model.Entity{
		Tenant:     tenant,
		Type:       model.EntityTypePerson,
		Name:       name,
		Confidence: 0.9,
	}
	err = d.entities.InsertEntity(anchor)
	if err != nil {
		return nil, err
	}
	return anchor, nil
}
