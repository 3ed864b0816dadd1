package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	loadSql "github.com/epitome-ai/fusion/sql"
	"github.com/google/uuid"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	ReinforceEntity(id uuid.UUID, properties model.Metadata, confidence float64) (*model.Entity, error)
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(tenant string, entityType string, name string) (*model.Entity, error)
	SelectEntitiesByFuzzyName(tenant string, name string, entityType *string, minSimilarity float64, limit int) ([]*model.Entity, error)
	SelectEntitiesByType(tenant string, entityType string, limit int) ([]*model.Entity, error)
	UpdateEntity(id uuid.UUID, name *string, entityType *string) (*model.Entity, error)
	SoftDeleteEntity(id uuid.UUID) error
	MergeEntities(sourceID uuid.UUID, targetID uuid.UUID) (*model.Entity, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5)`,
		entity.Tenant,
		entity.Type,
		entity.Name,
		entity.Properties,
		entity.Confidence,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// ReinforceEntity registers a repeat mention of an existing entity:
// mention count and last_seen advance, confidence is nudged upward and
// property gaps are filled without overwriting existing values.
func (h *EntitiesDBHandler) ReinforceEntity(id uuid.UUID, properties model.Metadata, confidence float64) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM reinforce_entity($1, $2, $3)`,
		id,
		properties,
		confidence,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByName retrieves the non-deleted entity with an exact
// case-insensitive name match for the given type.
func (h *EntitiesDBHandler) SelectEntityByName(tenant string, entityType string, name string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2, $3)`,
		tenant,
		entityType,
		name,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByFuzzyName searches entities by trigram name similarity.
// entityType nil matches all types.
func (h *EntitiesDBHandler) SelectEntitiesByFuzzyName(tenant string, name string, entityType *string, minSimilarity float64, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_fuzzy_name($1, $2, $3, $4, $5)`,
		tenant,
		name,
		entityType,
		minSimilarity,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
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
			&entity.DeletedAt,
			&entity.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesByType retrieves entities by type
func (h *EntitiesDBHandler) SelectEntitiesByType(tenant string, entityType string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_type($1, $2, $3)`,
		tenant,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// UpdateEntity renames and/or retypes an entity, preserving its id and
// edges. Nil leaves the field unchanged.
func (h *EntitiesDBHandler) UpdateEntity(id uuid.UUID, name *string, entityType *string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_entity($1, $2, $3)`,
		id,
		name,
		entityType,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SoftDeleteEntity marks an entity as deleted without removing the row.
func (h *EntitiesDBHandler) SoftDeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT soft_delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// MergeEntities merges the source entity into the target: all edges are
// re-pointed to the target, mention counts and properties are unioned, and
// the source is soft-deleted. The merge is rejected before any mutation
// when source equals target or either entity does not exist.
func (h *EntitiesDBHandler) MergeEntities(sourceID uuid.UUID, targetID uuid.UUID) (*model.Entity, error) {
	if sourceID == targetID {
		return nil, helper.NewError("merge validation", fmt.Errorf("cannot merge entity %v into itself", sourceID))
	}

	source, err := h.SelectEntity(sourceID)
	if err != nil || source.DeletedAt != nil {
		return nil, helper.NewError("merge validation", fmt.Errorf("source entity %v does not exist", sourceID))
	}
	target, err := h.SelectEntity(targetID)
	if err != nil || target.DeletedAt != nil {
		return nil, helper.NewError("merge validation", fmt.Errorf("target entity %v does not exist", targetID))
	}

	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM merge_entities($1, $2)`,
		sourceID,
		targetID,
	)

	err = scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	h.db.Logger.Info("Merged entities",
		slog.String("source_id", sourceID.String()),
		slog.String("target_id", targetID.String()),
		slog.Int("mention_count", entity.MentionCount),
	)

	return entity, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	return row.Scan(
		&entity.ID,
		&entity.Tenant,
		&entity.Type,
		&entity.Name,
		&entity.Properties,
		&entity.Confidence,
		&entity.MentionCount,
		&entity.FirstSeen,
		&entity.LastSeen,
		&entity.DeletedAt,
	)
}

// IsNotFound reports whether an error from a select means no matching row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
