package retrieval

import (
	"context"
	"time"

	"github.com/epitome-ai/fusion/model"
	"github.com/google/uuid"
)

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy gates each retrieval branch. Evaluation happens once per branch so
// the orchestrator's control flow stays linear. A denial skips the branch
// with zero facts and no error.
type Policy interface {
	Evaluate(ctx context.Context, resource string, permission string) (Decision, error)
}

// AllowAllPolicy permits every branch.
type AllowAllPolicy struct{}

func (AllowAllPolicy) Evaluate(ctx context.Context, resource string, permission string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// VectorHit is one semantic search result.
type VectorHit struct {
	ID         string
	Collection string
	Text       string
	Similarity float64
	Confidence float64
	CreatedAt  time.Time
}

// VectorSearcher performs semantic similarity search over the selected
// collections. An empty collections slice searches all of them.
type VectorSearcher interface {
	Search(ctx context.Context, tenant string, topic string, collections []string, limit int, minSimilarity float64) ([]VectorHit, error)
}

// TableRow is one row of an ad-hoc user table.
type TableRow map[string]interface{}

// TableQuerier runs sandboxed, per-table isolated queries against ad-hoc
// user tables.
type TableQuerier interface {
	// MatchRows returns rows where any of the given text columns contains
	// one of the terms.
	MatchRows(ctx context.Context, tenant string, table string, columns []string, terms []string, limit int) ([]TableRow, error)
	// RecentRows returns the most recently created rows.
	RecentRows(ctx context.Context, tenant string, table string, limit int) ([]TableRow, error)
}

// GraphReader provides the graph lookups the graph retriever needs.
type GraphReader interface {
	LookupByName(tenant string, name string, typeFilter *string, minSimilarity float64, limit int) ([]*model.Entity, error)
	Neighbors(entityID uuid.UUID, direction string, relation *string, limit int) ([]*model.Neighbor, error)
	Traverse(entityID uuid.UUID, maxDepth int, limit int, relation *string) ([]*model.TraversalNode, error)
}

// ProfileReader returns the tenant's profile document, or nil when the
// tenant has none.
type ProfileReader interface {
	Read(ctx context.Context, tenant string) (model.Metadata, error)
}
