package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	loadSql "github.com/epitome-ai/fusion/sql"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// MemoriesDBHandlerFunctions defines the interface for Memories database operations.
type MemoriesDBHandlerFunctions interface {
	InsertMemory(memory *model.Memory) error
	SelectMemoriesBySimilarity(tenant string, embedding []float32, limit int, minSimilarity float64, collections []string) ([]*model.Memory, error)
	DeleteMemory(id int64) error
}

// MemoriesDBHandler handles the default pgvector-backed semantic memory
// store, the engine's built-in vector source.
type MemoriesDBHandler struct {
	db *helper.Database
}

// NewMemoriesDBHandler creates a new memories database handler.
// It initializes the database connection and loads memory-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMemoriesDBHandler(db *helper.Database, embeddingDim int, force bool) (*MemoriesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	memoriesDbHandler := &MemoriesDBHandler{
		db: db,
	}

	err := loadSql.LoadMemoriesSql(memoriesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load memories sql", err)
	}

	err = memoriesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MemoriesDBHandler")

	return memoriesDbHandler, nil
}

// CreateTable creates the 'memories' table in the database.
// If the table already exists, it does not create it again.
// It also creates the HNSW vector index.
func (h *MemoriesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_memories($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing memories table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table memories")

	return nil
}

// InsertMemory inserts a new memory with its embedding
func (h *MemoriesDBHandler) InsertMemory(memory *model.Memory) error {
	embeddingVector := pgvector.NewVector(memory.Embedding)
	row := h.db.Instance.QueryRow(
		`SELECT id, tenant, collection, content, confidence, metadata, created_at FROM insert_memory($1, $2, $3, $4, $5, $6)`,
		memory.Tenant,
		memory.Collection,
		memory.Text,
		embeddingVector,
		memory.Confidence,
		memory.Metadata,
	)

	err := row.Scan(
		&memory.ID,
		&memory.Tenant,
		&memory.Collection,
		&memory.Text,
		&memory.Confidence,
		&memory.Metadata,
		&memory.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectMemoriesBySimilarity performs cosine similarity search bounded by
// limit and minimum similarity. An empty collections slice searches all
// collections.
func (h *MemoriesDBHandler) SelectMemoriesBySimilarity(tenant string, embedding []float32, limit int, minSimilarity float64, collections []string) ([]*model.Memory, error) {
	var collectionsParam interface{}
	if len(collections) > 0 {
		collectionsParam = pq.Array(collections)
	}

	embeddingVector := pgvector.NewVector(embedding)
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_memories_by_similarity($1, $2, $3, $4, $5)`,
		tenant,
		embeddingVector,
		limit,
		minSimilarity,
		collectionsParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		memory := &model.Memory{}
		err := rows.Scan(
			&memory.ID,
			&memory.Tenant,
			&memory.Collection,
			&memory.Text,
			&memory.Confidence,
			&memory.Metadata,
			&memory.CreatedAt,
			&memory.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		memories = append(memories, memory)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return memories, nil
}

// DeleteMemory deletes a memory by ID
func (h *MemoriesDBHandler) DeleteMemory(id int64) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_memory($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
