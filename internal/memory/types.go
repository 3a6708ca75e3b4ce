// Package memory implements the persistent semantic memory engine: durable
// storage of embedded content in PostgreSQL with pgvector similarity search,
// tag filtering and typed relationships between stored items.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the fixed length of every stored embedding vector.
// It must match the VECTOR(n) column type in the memories table.
const EmbeddingDimension = 384

// Memory is a stored, independently retrievable unit of content with an
// associated embedding. All fields are immutable after creation.
type Memory struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Content    json.RawMessage `json:"content"`
	Text       string          `json:"text"`
	Source     string          `json:"source"`
	Embedding  []float32       `json:"embedding"`
	Tags       []string        `json:"tags"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Title      string          `json:"title,omitempty"`
}

// MemoryRelationship is a directed, typed edge between two memories.
// Relationships are created and read, never updated.
type MemoryRelationship struct {
	ID           uuid.UUID        `json:"id"`
	FromMemoryID uuid.UUID        `json:"from_memory_id"`
	ToMemoryID   uuid.UUID        `json:"to_memory_id"`
	Type         RelationshipType `json:"type"`
	CreatedAt    time.Time        `json:"created_at"`
}

// RelationshipType is the closed vocabulary of relationship kinds. Values are
// validated at the system boundary and persisted as their canonical string.
type RelationshipType string

const (
	RelationParent      RelationshipType = "parent"
	RelationChild       RelationshipType = "child"
	RelationReference   RelationshipType = "reference"
	RelationRelated     RelationshipType = "related"
	RelationCause       RelationshipType = "cause"
	RelationEffect      RelationshipType = "effect"
	RelationDuplicate   RelationshipType = "duplicate"
	RelationVersionOf   RelationshipType = "version-of"
	RelationPartOf      RelationshipType = "part-of"
	RelationContains    RelationshipType = "contains"
	RelationPrecedes    RelationshipType = "precedes"
	RelationFollows     RelationshipType = "follows"
	RelationExampleOf   RelationshipType = "example-of"
	RelationInstanceOf  RelationshipType = "instance-of"
	RelationGeneralizes RelationshipType = "generalizes"
	RelationSpecializes RelationshipType = "specializes"
	RelationSynonym     RelationshipType = "synonym"
	RelationAntonym     RelationshipType = "antonym"
)

// ErrUnknownRelationshipType is returned when a relationship type string is
// outside the closed vocabulary, whether it arrives from a caller or is read
// back from the database.
var ErrUnknownRelationshipType = errors.New("unknown relationship type")

var relationshipTypes = map[RelationshipType]struct{}{
	RelationParent:      {},
	RelationChild:       {},
	RelationReference:   {},
	RelationRelated:     {},
	RelationCause:       {},
	RelationEffect:      {},
	RelationDuplicate:   {},
	RelationVersionOf:   {},
	RelationPartOf:      {},
	RelationContains:    {},
	RelationPrecedes:    {},
	RelationFollows:     {},
	RelationExampleOf:   {},
	RelationInstanceOf:  {},
	RelationGeneralizes: {},
	RelationSpecializes: {},
	RelationSynonym:     {},
	RelationAntonym:     {},
}

// ParseRelationshipType validates s against the closed vocabulary and returns
// its canonical form. Matching is case-insensitive and ignores surrounding
// whitespace.
func ParseRelationshipType(s string) (RelationshipType, error) {
	rt := RelationshipType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := relationshipTypes[rt]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRelationshipType, s)
	}
	return rt, nil
}

func (t RelationshipType) String() string {
	return string(t)
}

// Stats summarizes the contents of the memory store.
type Stats struct {
	TotalMemories   int64 `json:"total_memories"`
	AvgContentBytes int64 `json:"avg_content_bytes"`
}
