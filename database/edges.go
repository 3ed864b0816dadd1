package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	loadSql "github.com/epitome-ai/fusion/sql"
	"github.com/google/uuid"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	UpsertEdge(edge *model.Edge) error
	SelectEdge(id uuid.UUID) (*model.Edge, error)
	SelectEdgesFromEntity(entityID uuid.UUID, relation *string, limit int) ([]*model.Edge, error)
	SelectEdgesToEntity(entityID uuid.UUID, relation *string, limit int) ([]*model.Edge, error)
	SelectNeighbors(entityID uuid.UUID, direction string, relation *string, limit int) ([]*model.Neighbor, error)
	TraverseEntities(entityID uuid.UUID, maxDepth int, limit int, relation *string) ([]*model.TraversalNode, error)
	SoftDeleteEdge(id uuid.UUID) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// UpsertEdge inserts a new edge or idempotently strengthens the existing
// edge with the same (source, target, relation) triple: weight and evidence
// accumulate, confidence is nudged upward.
func (h *EdgesDBHandler) UpsertEdge(edge *model.Edge) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_edge($1, $2, $3, $4, $5, $6, $7, $8)`,
		edge.Tenant,
		edge.SourceID,
		edge.TargetID,
		edge.Relation,
		edge.Weight,
		edge.Confidence,
		edge.Evidence,
		edge.Properties,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(id uuid.UUID) (*model.Edge, error) {
	edge := &model.Edge{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge($1)`,
		id,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgesFromEntity retrieves non-deleted edges originating from an entity
func (h *EdgesDBHandler) SelectEdgesFromEntity(entityID uuid.UUID, relation *string, limit int) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_edges_from_entity($1, $2, $3)`, entityID, relation, limit)
}

// SelectEdgesToEntity retrieves non-deleted edges pointing at an entity
func (h *EdgesDBHandler) SelectEdgesToEntity(entityID uuid.UUID, relation *string, limit int) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_edges_to_entity($1, $2, $3)`, entityID, relation, limit)
}

func (h *EdgesDBHandler) selectEdges(query string, entityID uuid.UUID, relation *string, limit int) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(query, entityID, relation, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := scanEdge(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectNeighbors retrieves one-hop neighbors of an entity together with
// the connecting edge. direction is "out", "in" or "both".
func (h *EdgesDBHandler) SelectNeighbors(entityID uuid.UUID, direction string, relation *string, limit int) ([]*model.Neighbor, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_neighbors($1, $2, $3, $4)`,
		entityID,
		direction,
		relation,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var neighbors []*model.Neighbor
	for rows.Next() {
		edge := &model.Edge{}
		entity := &model.Entity{}
		err := rows.Scan(
			&edge.ID,
			&edge.SourceID,
			&edge.TargetID,
			&edge.Relation,
			&edge.Weight,
			&edge.Confidence,
			&edge.Evidence,
			&edge.Properties,
			&entity.ID,
			&entity.Tenant,
			&entity.Type,
			&entity.Name,
			&entity.Properties,
			&entity.Confidence,
			&entity.MentionCount,
			&entity.FirstSeen,
			&entity.LastSeen,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		neighbors = append(neighbors, &model.Neighbor{Entity: entity, Edge: edge})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return neighbors, nil
}

// TraverseEntities performs a bounded breadth-first traversal from an
// entity, returning each reached entity once at its minimum depth.
func (h *EdgesDBHandler) TraverseEntities(entityID uuid.UUID, maxDepth int, limit int, relation *string) ([]*model.TraversalNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM traverse_entities($1, $2, $3, $4)`,
		entityID,
		maxDepth,
		limit,
		relation,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var nodes []*model.TraversalNode
	for rows.Next() {
		entity := &model.Entity{}
		node := &model.TraversalNode{Entity: entity}
		err := rows.Scan(
			&entity.ID,
			&entity.Tenant,
			&entity.Type,
			&entity.Name,
			&entity.Properties,
			&entity.Confidence,
			&entity.MentionCount,
			&entity.FirstSeen,
			&entity.LastSeen,
			&node.Depth,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		nodes = append(nodes, node)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return nodes, nil
}

// SoftDeleteEdge marks an edge as deleted without removing the row.
func (h *EdgesDBHandler) SoftDeleteEdge(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT soft_delete_edge($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEdge(row rowScanner, edge *model.Edge) error {
	return row.Scan(
		&edge.ID,
		&edge.Tenant,
		&edge.SourceID,
		&edge.TargetID,
		&edge.Relation,
		&edge.Weight,
		&edge.Confidence,
		&edge.Evidence,
		&edge.Properties,
		&edge.FirstSeen,
		&edge.LastSeen,
		&edge.DeletedAt,
	)
}
