package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/epitome-ai/fusion/core/embed"
	"github.com/epitome-ai/fusion/core/extraction"
	"github.com/epitome-ai/fusion/core/fuse"
	"github.com/epitome-ai/fusion/core/intent"
	"github.com/epitome-ai/fusion/core/retrieval"
	"github.com/epitome-ai/fusion/core/scoring"
	"github.com/epitome-ai/fusion/database"
	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	loadSql "github.com/epitome-ai/fusion/sql"
	"github.com/google/uuid"
)

// Fusion provides a unified interface to the knowledge fusion engine: the
// per-tenant knowledge graph, the default semantic memory store, the
// extraction queue and the federated retrieval orchestrator.
type Fusion struct {
	DB       *helper.Database
	Entities *database.EntitiesDBHandler
	Edges    *database.EdgesDBHandler
	Memories *database.MemoriesDBHandler
	Jobs     *database.JobsDBHandler

	Extractor *extraction.Extractor
	Deduper   *extraction.Deduper
	Worker    *extraction.Worker

	embedder      embed.EmbedFunc
	chunker       embed.ChunkFunc
	tableQuerier  retrieval.TableQuerier
	profileReader retrieval.ProfileReader
	policy        retrieval.Policy
	ownerName     string
	// Logging
	log *slog.Logger
}

// NewFusion creates a new Fusion instance with all handlers initialized.
// The generative function may be nil; unknown record schemas then yield no
// candidates.
func NewFusion(config *helper.DatabaseConfiguration, embeddingDim int, generative extraction.GenerativeFunc) (*Fusion, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("fusion", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers, force=false to not reload functions that exist
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	memories, err := database.NewMemoriesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create memories handler", err)
	}

	jobs, err := database.NewJobsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create jobs handler", err)
	}

	extractor := extraction.NewExtractor(generative, logger)
	deduper := extraction.NewDeduper(entities, edges, logger)

	fusion := &Fusion{
		DB:        db,
		Entities:  entities,
		Edges:     edges,
		Memories:  memories,
		Jobs:      jobs,
		Extractor: extractor,
		Deduper:   deduper,
		chunker:   embed.SentenceChunker(5),
		ownerName: "me",
		log:       logger,
	}
	fusion.Worker = extraction.NewWorker(jobs, extractor, deduper, fusion.ownerName, logger)

	return fusion, nil
}

// Close closes the database connection
func (f *Fusion) Close() error {
	if f.DB != nil && f.DB.Instance != nil {
		return f.DB.Instance.Close()
	}
	return nil
}

// SetOwnerName sets the name of the person entity record-owner edges start
// from. Defaults to "me".
func (f *Fusion) SetOwnerName(name string) {
	if name != "" {
		f.ownerName = name
		f.Worker = extraction.NewWorker(f.Jobs, f.Extractor, f.Deduper, name, f.log)
	}
}

// SetTableQuerier wires the sandboxed query executor for ad-hoc user
// tables. Without it the table branch is never planned.
func (f *Fusion) SetTableQuerier(querier retrieval.TableQuerier) {
	f.tableQuerier = querier
}

// SetProfileReader wires the versioned profile document source. Without it
// the profile branch is never planned.
func (f *Fusion) SetProfileReader(reader retrieval.ProfileReader) {
	f.profileReader = reader
}

// SetPolicy wires the consent check evaluated once per retrieval branch.
// Without it every branch is allowed.
func (f *Fusion) SetPolicy(policy retrieval.Policy) {
	f.policy = policy
}

// SetEmbedder sets the embedding function used for memory writes and
// semantic search.
func (f *Fusion) SetEmbedder(embedder embed.EmbedFunc) {
	f.embedder = embedder
}

// SetChunker sets the chunking function used by MemorizeDocument. Defaults
// to a sentence chunker grouping five sentences per chunk.
func (f *Fusion) SetChunker(chunker embed.ChunkFunc) {
	if chunker != nil {
		f.chunker = chunker
	}
}

// UseDefaultEmbedder sets up the default sentence transformer embedder
// (all-MiniLM-L6-v2, 384 dimensions). The embedding dimension passed to
// NewFusion must match embed.DefaultEmbeddingDim.
func (f *Fusion) UseDefaultEmbedder() error {
	embedder, err := embed.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	f.embedder = embedder
	return nil
}

// ClassifyIntent maps a free-text topic to an intent category, expanded
// search terms, and entity/relation hints.
func (f *Fusion) ClassifyIntent(topic string) model.ClassifiedIntent {
	return intent.Classify(topic)
}

// ScoreSourceRelevance ranks the four source types by relevance to the
// classified intent and available metadata.
func (f *Fusion) ScoreSourceRelevance(topic string, classified model.ClassifiedIntent, tables []model.TableMeta, collections []model.CollectionMeta, profile model.Metadata) []model.ScoredSource {
	return scoring.ScoreSourceRelevance(topic, classified, tables, collections, profile)
}

// BuildRetrievalPlan selects the sources a query would fan out to under
// the given budget tier.
func (f *Fusion) BuildRetrievalPlan(topic string, tier model.BudgetTier, tables []model.TableMeta, collections []model.CollectionMeta, profile model.Metadata) *retrieval.RetrievalPlan {
	classified := intent.Classify(topic)
	return retrieval.BuildRetrievalPlan(topic, classified, model.BudgetFor(tier), tables, collections, profile)
}

// FuseFacts normalizes, deduplicates, corroboration-boosts and ranks a
// fact set.
func (f *Fusion) FuseFacts(facts []model.RetrievedFact, maxFacts int, classified *model.ClassifiedIntent) []model.RetrievedFact {
	return fuse.FuseFacts(facts, maxFacts, classified)
}

// RetrieveKnowledge answers a topic query by fusing facts from the
// semantic memory store, the knowledge graph, the wired ad-hoc tables and
// the profile document. Zero facts is a valid outcome; partial failures
// surface as warnings on the result.
func (f *Fusion) RetrieveKnowledge(ctx context.Context, tenant string, topic string, tier model.BudgetTier, tables []model.TableMeta, collections []model.CollectionMeta) (*model.RetrievalResult, error) {
	orchestrator := retrieval.NewOrchestrator(
		f.vectorSearcher(),
		f.tableQuerier,
		&graphStore{entities: f.Entities, edges: f.Edges},
		f.profileReader,
		f.policy,
		f.log,
	)
	return orchestrator.Retrieve(ctx, tenant, topic, tier, tables, collections)
}

// DefaultCollections describes the built-in memory store as a vector
// collection, for callers without their own collection metadata.
func (f *Fusion) DefaultCollections() []model.CollectionMeta {
	return []model.CollectionMeta{
		{Name: "memories", Description: "semantic memories and notes"},
	}
}

// Memorize embeds a text and stores it in the default semantic memory
// store, making it retrievable through the vector branch.
func (f *Fusion) Memorize(tenant string, collection string, text string, confidence float64, metadata model.Metadata) (*model.Memory, error) {
	if f.embedder == nil {
		return nil, helper.NewError("memorize", fmt.Errorf("embedder not set, use SetEmbedder() or UseDefaultEmbedder() first"))
	}

	embedding, err := f.embedder(text)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	memory := &model.Memory{
		Tenant:     tenant,
		Collection: collection,
		Text:       text,
		Embedding:  embedding,
		Confidence: confidence,
		Metadata:   metadata,
	}
	err = f.Memories.InsertMemory(memory)
	if err != nil {
		return nil, helper.NewError("insert memory", err)
	}
	return memory, nil
}

// MemorizeDocument splits a long text into chunks and stores each chunk as
// its own memory, so retrieval matches against passages instead of the
// whole document.
func (f *Fusion) MemorizeDocument(tenant string, collection string, text string, confidence float64, metadata model.Metadata) ([]*model.Memory, error) {
	chunks, err := f.chunker(text)
	if err != nil {
		return nil, helper.NewError("chunk document", err)
	}

	memories := make([]*model.Memory, 0, len(chunks))
	for index, chunk := range chunks {
		chunkMetadata := model.Metadata{"chunk_index": index, "chunk_count": len(chunks)}
		for key, value := range metadata {
			chunkMetadata[key] = value
		}

		memory, err := f.Memorize(tenant, collection, chunk, confidence, chunkMetadata)
		if err != nil {
			return memories, err
		}
		memories = append(memories, memory)
	}
	return memories, nil
}

// ExtractRecord extracts candidate entities and edges from a record and
// writes them to the graph synchronously. Extraction failures yield an
// empty result, never an error on the write path.
func (f *Fusion) ExtractRecord(ctx context.Context, record *model.Record, promptContext *extraction.PromptContext) (*model.ExtractionResult, error) {
	result := f.Extractor.ExtractRecord(ctx, record, promptContext)
	if len(result.Candidates) == 0 {
		return result, nil
	}

	err := f.Deduper.Apply(record.Tenant, f.ownerName, result)
	if err != nil {
		return nil, helper.NewError("apply extraction", err)
	}
	return result, nil
}

// EnqueueRecord queues a record for background extraction. The write
// returns as soon as the job is durable; a worker pool started with
// RunWorkers drains the queue.
func (f *Fusion) EnqueueRecord(record *model.Record) (*model.ExtractionJob, error) {
	payload := record.Fields
	if payload == nil {
		payload = model.Metadata{}
	}
	if record.Text != "" {
		payload["text"] = record.Text
	}

	job := &model.ExtractionJob{
		Tenant:  record.Tenant,
		Schema:  record.Schema,
		Payload: payload,
	}
	err := f.Jobs.EnqueueJob(job)
	if err != nil {
		return nil, helper.NewError("enqueue record", err)
	}
	return job, nil
}

// RunWorkers drains the extraction queue until the context is cancelled.
func (f *Fusion) RunWorkers(ctx context.Context) error {
	return f.Worker.Run(ctx)
}

// ImportFamily extracts the nested family structure of a profile document
// and writes the relatives and their relations to the graph.
func (f *Fusion) ImportFamily(tenant string, family map[string]interface{}) error {
	candidates := extraction.ExtractFamily(tenant, family)
	if len(candidates) == 0 {
		return nil
	}
	result := &model.ExtractionResult{
		Candidates: candidates,
		Method:     model.ExtractionMethodRules,
	}
	return f.Deduper.Apply(tenant, f.ownerName, result)
}

// MergeEntities re-points every edge of the source entity to the target,
// unions mention counts and evidence, and soft-deletes the source. The
// merge is rejected before any mutation when the ids are equal or either
// entity does not exist.
func (f *Fusion) MergeEntities(sourceID uuid.UUID, targetID uuid.UUID) (*model.Entity, error) {
	return f.Entities.MergeEntities(sourceID, targetID)
}

// RetypeEntity corrects the type of an entity, preserving its id and
// edges. Type correction is deliberately separate from merging; it needs a
// human or high-confidence signal.
func (f *Fusion) RetypeEntity(id uuid.UUID, entityType string) (*model.Entity, error) {
	return f.Entities.UpdateEntity(id, nil, &entityType)
}

// vectorSearcher adapts the memory store and embedder to the orchestrator.
// Without an embedder the vector branch is disabled.
func (f *Fusion) vectorSearcher() retrieval.VectorSearcher {
	if f.embedder == nil {
		return nil
	}
	return &memorySearcher{memories: f.Memories, embedder: f.embedder}
}

type memorySearcher struct {
	memories *database.MemoriesDBHandler
	embedder embed.EmbedFunc
}

func (s *memorySearcher) Search(ctx context.Context, tenant string, topic string, collections []string, limit int, minSimilarity float64) ([]retrieval.VectorHit, error) {
	embedding, err := s.embedder(topic)
	if err != nil {
		return nil, err
	}

	memories, err := s.memories.SelectMemoriesBySimilarity(tenant, embedding, limit, minSimilarity, collections)
	if err != nil {
		return nil, err
	}

	hits := make([]retrieval.VectorHit, 0, len(memories))
	for _, memory := range memories {
		hits = append(hits, retrieval.VectorHit{
			ID:         fmt.Sprintf("%v", memory.ID),
			Collection: memory.Collection,
			Text:       memory.Text,
			Similarity: memory.Similarity,
			Confidence: memory.Confidence,
			CreatedAt:  memory.CreatedAt,
		})
	}
	return hits, nil
}

// graphStore adapts the entity and edge handlers to the graph retriever.
type graphStore struct {
	entities *database.EntitiesDBHandler
	edges    *database.EdgesDBHandler
}

func (g *graphStore) LookupByName(tenant string, name string, typeFilter *string, minSimilarity float64, limit int) ([]*model.Entity, error) {
	return g.entities.SelectEntitiesByFuzzyName(tenant, name, typeFilter, minSimilarity, limit)
}

func (g *graphStore) Neighbors(entityID uuid.UUID, direction string, relation *string, limit int) ([]*model.Neighbor, error) {
	return g.edges.SelectNeighbors(entityID, direction, relation, limit)
}

func (g *graphStore) Traverse(entityID uuid.UUID, maxDepth int, limit int, relation *string) ([]*model.TraversalNode, error) {
	return g.edges.TraverseEntities(entityID, maxDepth, limit, relation)
}
