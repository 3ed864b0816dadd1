package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/epitome-ai/fusion/core/fuse"
	"github.com/epitome-ai/fusion/core/intent"
	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	"golang.org/x/sync/errgroup"
)

// A query needs at least this many facts before the smallest budget skips
// progressive deepening.
const deepenThreshold = 3

// Orchestrator drives a topic query through plan, fan-out, optional
// deepening, fusion and response assembly. Branch failures degrade the
// result instead of failing it.
type Orchestrator struct {
	vector  VectorSearcher
	tables  TableQuerier
	graph   GraphReader
	profile ProfileReader
	policy  Policy
	logger  *slog.Logger
}

// NewOrchestrator creates a new retrieval orchestrator. Any retriever may
// be nil; its branch is then never planned. A nil policy allows everything.
func NewOrchestrator(vector VectorSearcher, tables TableQuerier, graph GraphReader, profile ProfileReader, policy Policy, logger *slog.Logger) *Orchestrator {
	if policy == nil {
		policy = AllowAllPolicy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		vector:  vector,
		tables:  tables,
		graph:   graph,
		profile: profile,
		policy:  policy,
		logger:  logger,
	}
}

type branchResult struct {
	source  model.SourceType
	facts   []model.RetrievedFact
	warning string
	queried bool
}

// Retrieve answers a topic query against all enabled sources. Zero facts is
// a valid outcome; partial failures surface as warnings.
func (o *Orchestrator) Retrieve(ctx context.Context, tenant string, topic string, tier model.BudgetTier, tables []model.TableMeta, collections []model.CollectionMeta) (*model.RetrievalResult, error) {
	budget := model.BudgetFor(tier)
	classified := intent.Classify(topic)

	profileDoc := o.readProfileContext(ctx, tenant)
	classified.ExpandedTerms = expandFamilyTerms(topic, classified.ExpandedTerms, profileDoc)

	plan := BuildRetrievalPlan(topic, classified, budget, tables, collections, profileDoc)
	planned := plan.PlannedSources()

	o.logger.Info("Built retrieval plan",
		slog.String("topic", topic),
		slog.String("intent", string(classified.Primary)),
		slog.Int("plannedSources", len(planned)))

	results := o.fanOut(ctx, tenant, plan)

	var facts []model.RetrievedFact
	var warnings []string
	var queried []model.SourceType
	vectorQueried := false
	for _, result := range results {
		facts = append(facts, result.facts...)
		if result.warning != "" {
			warnings = append(warnings, result.warning)
		}
		if result.queried {
			queried = append(queried, result.source)
			if result.source == model.SourceTypeVector {
				vectorQueried = true
			}
		}
	}

	var missing []model.SourceType
	for _, source := range planned {
		wasQueried := false
		for _, q := range queried {
			if q == source {
				wasQueried = true
				break
			}
		}
		if !wasQueried {
			missing = append(missing, source)
		}
	}

	// Progressive deepening: the smallest budget retries the vector branch
	// with the next-larger parameters when results are too sparse.
	if budget.Tier == model.BudgetSmall && len(facts) < deepenThreshold && vectorQueried && o.vector != nil {
		larger := budget.NextLarger()
		deeper, err := retrieveVector(ctx, o.vector, tenant, plan, larger.MaxVectorResults, larger.VectorMinSimilarity)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("deepened vector retrieval failed: %v", err))
		} else {
			facts = append(facts, deeper...)
		}
		warnings = append(warnings, "sparse results, deepened vector search to medium budget")
	}

	fused := fuse.FuseFacts(facts, budget.MaxTotalFacts, &classified)

	coverage := 1.0
	if len(planned) > 0 {
		coverage = float64(len(queried)) / float64(len(planned))
	}

	result := &model.RetrievalResult{
		Topic:          topic,
		Intent:         classified,
		Facts:          fused,
		SourcesQueried: queried,
		MissingSources: missing,
		Coverage:       coverage,
		Warnings:       warnings,
	}
	result.UncertaintyReason = uncertaintyReason(result)

	return result, nil
}

// fanOut runs one retriever per enabled source concurrently and waits for
// all branches to settle. A branch failure never aborts the others.
func (o *Orchestrator) fanOut(ctx context.Context, tenant string, plan *RetrievalPlan) []branchResult {
	type branch struct {
		source   model.SourceType
		resource string
		enabled  bool
		run      func(context.Context) ([]model.RetrievedFact, error)
	}

	branches := []branch{
		{
			source:   model.SourceTypeVector,
			resource: "vector",
			enabled:  len(plan.Collections) > 0 && o.vector != nil,
			run: func(ctx context.Context) ([]model.RetrievedFact, error) {
				return retrieveVector(ctx, o.vector, tenant, plan, plan.Budget.MaxVectorResults, plan.Budget.VectorMinSimilarity)
			},
		},
		{
			source:   model.SourceTypeTable,
			resource: "tables",
			enabled:  len(plan.Tables) > 0 && o.tables != nil,
			run: func(ctx context.Context) ([]model.RetrievedFact, error) {
				return retrieveTables(ctx, o.tables, tenant, plan)
			},
		},
		{
			source:   model.SourceTypeGraph,
			resource: "graph",
			enabled:  plan.Graph && o.graph != nil,
			run: func(ctx context.Context) ([]model.RetrievedFact, error) {
				return retrieveGraph(ctx, o.graph, tenant, plan)
			},
		},
		{
			source:   model.SourceTypeProfile,
			resource: "profile",
			enabled:  plan.Profile && o.profile != nil,
			run: func(ctx context.Context) ([]model.RetrievedFact, error) {
				return retrieveProfile(ctx, o.profile, tenant, plan)
			},
		},
	}

	results := make([]branchResult, 0, len(branches))
	slots := make(map[model.SourceType]*branchResult, len(branches))
	group, groupCtx := errgroup.WithContext(ctx)

	for _, b := range branches {
		if !b.enabled {
			continue
		}
		results = append(results, branchResult{source: b.source})
		slots[b.source] = &results[len(results)-1]

		slot := slots[b.source]
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slot.warning = fmt.Sprintf("%v retriever panicked: %v", slot.source, r)
				}
			}()

			decision, err := o.policy.Evaluate(groupCtx, b.resource, "read")
			if err != nil {
				slot.warning = fmt.Sprintf("%v consent check failed: %v", b.source, err)
				return nil
			}
			if !decision.Allowed {
				o.logger.Info("Branch skipped by policy",
					slog.String("source", string(b.source)),
					slog.String("reason", decision.Reason))
				return nil
			}

			facts, err := b.run(groupCtx)
			if err != nil {
				slot.warning = fmt.Sprintf("%v retriever failed: %v", b.source, err)
				return nil
			}
			slot.facts = facts
			slot.queried = true
			return nil
		})
	}

	// All branches settle; none of them returns an error
	_ = group.Wait()

	return results
}

// readProfileContext fetches the profile document for planning. Failures
// here degrade to an empty document; the profile branch reports its own
// errors.
func (o *Orchestrator) readProfileContext(ctx context.Context, tenant string) model.Metadata {
	if o.profile == nil {
		return nil
	}
	doc, err := o.profile.Read(ctx, tenant)
	if err != nil {
		return nil
	}
	return doc
}

// expandFamilyTerms resolves a possessive role to the family member's
// actual name from the profile, so downstream retrievers can match it.
func expandFamilyTerms(topic string, terms []string, profile model.Metadata) []string {
	role, ok := intent.DetectRole(topic)
	if !ok || len(profile) == 0 {
		return terms
	}

	for _, leaf := range helper.Flatten(profile, profileFlattenDepth) {
		path := strings.ToLower(leaf.Path)
		if !strings.Contains(path, role) {
			continue
		}
		if !strings.HasSuffix(path, role) && !strings.HasSuffix(path, "name") {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(leaf.Value))
		if name == "" || len(strings.Fields(name)) > 3 {
			continue
		}
		if !containsTerm(terms, name) {
			terms = append(terms, name)
		}
	}
	return terms
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}

func uncertaintyReason(result *model.RetrievalResult) string {
	switch {
	case len(result.Facts) == 0:
		return "no facts found for this topic"
	case result.Coverage < 1.0:
		return "some planned sources could not be queried"
	case len(result.Warnings) > 0:
		return "retrieval completed with warnings"
	default:
		return ""
	}
}
