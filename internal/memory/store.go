package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// Default search parameters, applied when the caller leaves them unset.
const (
	DefaultSearchLimit   = 10
	DefaultMinSimilarity = 0.7
)

// EmbeddingClient converts text into a fixed-length vector. Implementations
// must always return a vector of EmbeddingDimension elements; backend
// failures are absorbed by the implementation, not surfaced here.
type EmbeddingClient interface {
	Generate(ctx context.Context, text string) []float32
}

// Store persists memories and relationships in PostgreSQL. Every operation is
// a self-contained round trip on the shared pool; there is no in-memory state,
// so any number of calls may run concurrently.
type Store struct {
	pool     *pgxpool.Pool
	embedder EmbeddingClient
	log      *logrus.Logger
}

// NewStore creates a Store on top of an open connection pool and an embedding
// client.
func NewStore(pool *pgxpool.Pool, embedder EmbeddingClient, log *logrus.Logger) *Store {
	return &Store{
		pool:     pool,
		embedder: embedder,
		log:      log,
	}
}

const memoryColumns = "id, type, content, text, source, embedding, tags, confidence, created_at, updated_at, title"

// StoreMemoryParams describes a memory to be stored. Content is the raw
// payload; invalid JSON degrades to an empty object with the raw string used
// as embeddable text. When RelatedTo is set, RelationshipType must be a valid
// relationship kind and a relationship from the new memory to RelatedTo is
// created after the insert.
type StoreMemoryParams struct {
	Type             string
	Content          string
	Source           string
	Tags             []string
	Confidence       float64
	RelatedTo        *uuid.UUID
	RelationshipType RelationshipType
	Title            string
}

// StoreMemory derives the embeddable text from the payload, obtains its
// embedding and persists a new memory row. The returned Memory is fully
// populated, including the assigned id and timestamps.
//
// The optional relationship insert is a second, independent statement: a
// fault between the two leaves the memory durable without its relationship.
func (s *Store) StoreMemory(ctx context.Context, p StoreMemoryParams) (*Memory, error) {
	content, text := deriveMemoryText(p.Content, p.Title)
	embedding := s.embedder.Generate(ctx, text)

	now := time.Now().UTC()
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	mem := &Memory{
		ID:         uuid.New(),
		Type:       p.Type,
		Content:    content,
		Text:       text,
		Source:     p.Source,
		Embedding:  embedding,
		Tags:       tags,
		Confidence: p.Confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
		Title:      p.Title,
	}

	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var title *string
	if p.Title != "" {
		title = &p.Title
	}

	_, err := s.pool.Exec(ctx, query,
		mem.ID, mem.Type, mem.Content, mem.Text, mem.Source,
		pgvector.NewVector(mem.Embedding), mem.Tags, mem.Confidence,
		mem.CreatedAt, mem.UpdatedAt, title,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	if p.RelatedTo != nil && p.RelationshipType != "" {
		if _, err := s.CreateRelationship(ctx, mem.ID, *p.RelatedTo, p.RelationshipType); err != nil {
			return nil, fmt.Errorf("memory %s stored but relationship not created: %w", mem.ID, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"id":   mem.ID,
		"type": mem.Type,
	}).Debug("Memory stored")

	return mem, nil
}

// SearchParams describes a similarity search. Limit defaults to
// DefaultSearchLimit when zero or negative; MinSimilarity is used as given, so
// a zero value accepts any cosine distance below 1.
type SearchParams struct {
	Query         string
	Limit         int
	MinSimilarity float64
	FilterTags    []string
}

// Search embeds the query and returns memories whose cosine distance to it is
// strictly below 1-MinSimilarity, most similar first, truncated to Limit. A
// memory exactly at the similarity threshold is excluded. When FilterTags is
// non-empty only memories whose tag set contains every filter tag qualify.
// An empty result is not an error.
func (s *Store) Search(ctx context.Context, p SearchParams) ([]Memory, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}

	queryEmbedding := s.embedder.Generate(ctx, p.Query)

	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE embedding <=> $1 < $2
	`
	args := []any{pgvector.NewVector(queryEmbedding), 1 - p.MinSimilarity}

	if len(p.FilterTags) > 0 {
		query += " AND tags @> $3"
		args = append(args, p.FilterTags)
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, p.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"results":        len(memories),
		"limit":          p.Limit,
		"min_similarity": p.MinSimilarity,
	}).Debug("Memory search completed")

	return memories, nil
}

// Get retrieves a memory by id. A missing id is a normal outcome and yields
// (nil, nil), not an error.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE id = $1
	`

	mem, err := scanMemory(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}

	return mem, nil
}

// Delete removes a memory by id. It reports true iff a row existed and was
// removed.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM memories WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete memory: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetMany retrieves the subset of ids that exist. Unknown ids are silently
// omitted and no output ordering is guaranteed.
func (s *Store) GetMany(ctx context.Context, ids []uuid.UUID) ([]Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE id = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// CreateRelationship persists a directed, typed edge between two memory ids.
// The type must belong to the closed vocabulary; endpoints are not checked
// for existence.
func (s *Store) CreateRelationship(ctx context.Context, fromID, toID uuid.UUID, relType RelationshipType) (*MemoryRelationship, error) {
	canonical, err := ParseRelationshipType(string(relType))
	if err != nil {
		return nil, err
	}

	rel := &MemoryRelationship{
		ID:           uuid.New(),
		FromMemoryID: fromID,
		ToMemoryID:   toID,
		Type:         canonical,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO memory_relationships (id, from_memory_id, to_memory_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query, rel.ID, rel.FromMemoryID, rel.ToMemoryID, rel.Type.String(), rel.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"from": fromID,
		"to":   toID,
		"type": canonical,
	}).Debug("Relationship created")

	return rel, nil
}

// GetRelationships returns the relationships originating at memoryID,
// optionally filtered to an exact type. Edges pointing at memoryID are not
// returned; directionality is one-way.
func (s *Store) GetRelationships(ctx context.Context, memoryID uuid.UUID, relType RelationshipType) ([]MemoryRelationship, error) {
	query := `
		SELECT id, from_memory_id, to_memory_id, type, created_at
		FROM memory_relationships
		WHERE from_memory_id = $1
	`
	args := []any{memoryID}

	if relType != "" {
		canonical, err := ParseRelationshipType(string(relType))
		if err != nil {
			return nil, err
		}
		query += " AND type = $2"
		args = append(args, canonical.String())
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	defer rows.Close()

	var rels []MemoryRelationship
	for rows.Next() {
		var (
			rel     MemoryRelationship
			typeStr string
		)
		if err := rows.Scan(&rel.ID, &rel.FromMemoryID, &rel.ToMemoryID, &typeStr, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		// A stored type outside the vocabulary is a defined error, not
		// silently accepted.
		rel.Type, err = ParseRelationshipType(typeStr)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}

	return rels, nil
}

// Stats reports the total number of memories and the average stored content
// size in bytes.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(LENGTH(content::text)), 0)
		FROM memories
	`

	var (
		stats Stats
		avg   float64
	)
	if err := s.pool.QueryRow(ctx, query).Scan(&stats.TotalMemories, &avg); err != nil {
		return nil, fmt.Errorf("failed to get memory stats: %w", err)
	}
	stats.AvgContentBytes = int64(avg)

	return &stats, nil
}

func scanMemory(row pgx.Row) (*Memory, error) {
	var (
		mem       Memory
		embedding pgvector.Vector
		title     *string
	)
	err := row.Scan(
		&mem.ID, &mem.Type, &mem.Content, &mem.Text, &mem.Source,
		&embedding, &mem.Tags, &mem.Confidence,
		&mem.CreatedAt, &mem.UpdatedAt, &title,
	)
	if err != nil {
		return nil, err
	}

	mem.Embedding = embedding.Slice()
	if title != nil {
		mem.Title = *title
	}
	return &mem, nil
}

func scanMemories(rows pgx.Rows) ([]Memory, error) {
	var memories []Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, *mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}
	return memories, nil
}
