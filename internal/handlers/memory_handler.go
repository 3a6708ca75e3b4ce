// Package handlers exposes the memory engine over HTTP. Handlers are a pure
// consumer of the engine: they validate requests, map them one-to-one onto
// engine operations and render JSON.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dev.helix.memstore/internal/memory"
)

// MemoryService is the engine surface the HTTP layer consumes.
type MemoryService interface {
	StoreMemory(ctx context.Context, p memory.StoreMemoryParams) (*memory.Memory, error)
	Search(ctx context.Context, p memory.SearchParams) ([]memory.Memory, error)
	Get(ctx context.Context, id uuid.UUID) (*memory.Memory, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]memory.Memory, error)
	CreateRelationship(ctx context.Context, fromID, toID uuid.UUID, relType memory.RelationshipType) (*memory.MemoryRelationship, error)
	GetRelationships(ctx context.Context, memoryID uuid.UUID, relType memory.RelationshipType) ([]memory.MemoryRelationship, error)
	Stats(ctx context.Context) (*memory.Stats, error)
}

// MemoryHandler handles memory API requests.
type MemoryHandler struct {
	store MemoryService
	log   *logrus.Logger
}

// NewMemoryHandler creates a new memory handler.
func NewMemoryHandler(store MemoryService, log *logrus.Logger) *MemoryHandler {
	return &MemoryHandler{
		store: store,
		log:   log,
	}
}

// RegisterRoutes mounts all memory endpoints under /v1.
func (h *MemoryHandler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/memories", h.Store)
	v1.POST("/memories/search", h.Search)
	v1.POST("/memories/batch", h.GetMany)
	v1.GET("/memories/:id", h.Get)
	v1.DELETE("/memories/:id", h.Delete)
	v1.GET("/memories/:id/relationships", h.GetRelationships)
	v1.POST("/relationships", h.CreateRelationship)
	v1.GET("/stats", h.Stats)
}

// StoreMemoryRequest is the payload for POST /v1/memories.
type StoreMemoryRequest struct {
	Type             string   `json:"type" binding:"required"`
	Content          string   `json:"content" binding:"required"`
	Source           string   `json:"source"`
	Tags             []string `json:"tags"`
	Confidence       *float64 `json:"confidence"`
	RelatedTo        string   `json:"related_to"`
	RelationshipType string   `json:"relationship_type"`
	Title            string   `json:"title"`
}

// Store creates a new memory.
// POST /v1/memories
func (h *MemoryHandler) Store(c *gin.Context) {
	var req StoreMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	params := memory.StoreMemoryParams{
		Type:       req.Type,
		Content:    req.Content,
		Source:     req.Source,
		Tags:       req.Tags,
		Confidence: confidence,
		Title:      req.Title,
	}

	if req.RelatedTo != "" {
		relatedTo, err := uuid.Parse(req.RelatedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "related_to is not a valid id: " + req.RelatedTo,
			})
			return
		}
		// A blank relationship type skips the relationship; the memory is
		// still stored.
		if strings.TrimSpace(req.RelationshipType) != "" {
			relType, err := memory.ParseRelationshipType(req.RelationshipType)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "unknown_relationship_type",
					"message": err.Error(),
				})
				return
			}
			params.RelatedTo = &relatedTo
			params.RelationshipType = relType
		}
	}

	mem, err := h.store.StoreMemory(c.Request.Context(), params)
	if err != nil {
		h.storageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mem)
}

// SearchRequest is the payload for POST /v1/memories/search.
type SearchRequest struct {
	Query         string   `json:"query" binding:"required"`
	Limit         *int     `json:"limit"`
	MinSimilarity *float64 `json:"min_similarity"`
	FilterTags    []string `json:"filter_tags"`
}

// SearchResponse lists the memories matching a search.
type SearchResponse struct {
	Results []memory.Memory `json:"results"`
	Count   int             `json:"count"`
}

// Search runs a similarity search.
// POST /v1/memories/search
func (h *MemoryHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	params := memory.SearchParams{
		Query:         req.Query,
		Limit:         memory.DefaultSearchLimit,
		MinSimilarity: memory.DefaultMinSimilarity,
		FilterTags:    req.FilterTags,
	}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}
	if req.MinSimilarity != nil {
		params.MinSimilarity = *req.MinSimilarity
	}

	results, err := h.store.Search(c.Request.Context(), params)
	if err != nil {
		h.storageError(c, err)
		return
	}
	if results == nil {
		results = []memory.Memory{}
	}

	c.JSON(http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}

// Get retrieves a single memory.
// GET /v1/memories/:id
func (h *MemoryHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	mem, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.storageError(c, err)
		return
	}
	if mem == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "memory_not_found",
			"message": "Memory not found: " + id.String(),
		})
		return
	}

	c.JSON(http.StatusOK, mem)
}

// Delete removes a memory.
// DELETE /v1/memories/:id
func (h *MemoryHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.storageError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "memory_not_found",
			"message": "Memory not found: " + id.String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetManyRequest is the payload for POST /v1/memories/batch.
type GetManyRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// GetMany retrieves the subset of the requested ids that exist.
// POST /v1/memories/batch
func (h *MemoryHandler) GetMany(c *gin.Context) {
	var req GetManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "not a valid id: " + raw,
			})
			return
		}
		ids = append(ids, id)
	}

	memories, err := h.store.GetMany(c.Request.Context(), ids)
	if err != nil {
		h.storageError(c, err)
		return
	}
	if memories == nil {
		memories = []memory.Memory{}
	}

	c.JSON(http.StatusOK, gin.H{
		"memories": memories,
		"count":    len(memories),
	})
}

// CreateRelationshipRequest is the payload for POST /v1/relationships.
type CreateRelationshipRequest struct {
	FromMemoryID string `json:"from_memory_id" binding:"required"`
	ToMemoryID   string `json:"to_memory_id" binding:"required"`
	Type         string `json:"type" binding:"required"`
}

// CreateRelationship creates a directed, typed edge between two memories.
// POST /v1/relationships
func (h *MemoryHandler) CreateRelationship(c *gin.Context) {
	var req CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	fromID, err := uuid.Parse(req.FromMemoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "from_memory_id is not a valid id: " + req.FromMemoryID,
		})
		return
	}
	toID, err := uuid.Parse(req.ToMemoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "to_memory_id is not a valid id: " + req.ToMemoryID,
		})
		return
	}

	relType, err := memory.ParseRelationshipType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown_relationship_type",
			"message": err.Error(),
		})
		return
	}

	rel, err := h.store.CreateRelationship(c.Request.Context(), fromID, toID, relType)
	if err != nil {
		h.storageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rel)
}

// GetRelationships lists the relationships originating at a memory.
// GET /v1/memories/:id/relationships?type=...
func (h *MemoryHandler) GetRelationships(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var relType memory.RelationshipType
	if raw := c.Query("type"); raw != "" {
		parsed, err := memory.ParseRelationshipType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown_relationship_type",
				"message": err.Error(),
			})
			return
		}
		relType = parsed
	}

	rels, err := h.store.GetRelationships(c.Request.Context(), id, relType)
	if err != nil {
		h.storageError(c, err)
		return
	}
	if rels == nil {
		rels = []memory.MemoryRelationship{}
	}

	c.JSON(http.StatusOK, gin.H{
		"relationships": rels,
		"count":         len(rels),
	})
}

// Stats reports storage statistics.
// GET /v1/stats
func (h *MemoryHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.storageError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *MemoryHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "not a valid id: " + c.Param("id"),
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *MemoryHandler) storageError(c *gin.Context, err error) {
	if errors.Is(err, memory.ErrUnknownRelationshipType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown_relationship_type",
			"message": err.Error(),
		})
		return
	}

	h.log.WithError(err).Error("Storage operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "storage_error",
		"message": err.Error(),
	})
}
