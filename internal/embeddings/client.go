// Package embeddings provides the HTTP client for the external embedding
// backend. The backend is treated as an opaque service: text in, fixed-length
// vector out.
package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Dimension is the fixed length of every generated vector.
const Dimension = 384

// Config holds embedding backend configuration.
type Config struct {
	// APIURL is the base URL of the backend, e.g. "http://localhost:11434".
	APIURL string
	Model  string
	// Timeout bounds each HTTP request to the backend.
	Timeout time.Duration
}

// DefaultConfig returns default embedding configuration targeting a local
// Ollama instance.
func DefaultConfig() *Config {
	return &Config{
		APIURL:  "http://localhost:11434",
		Model:   "all-minilm",
		Timeout: 10 * time.Second,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// Client generates embeddings by calling the backend's /api/embeddings
// endpoint. It trades correctness for availability: when the backend call
// fails for any reason, Generate returns a deterministic hash-seeded unit
// vector instead of an error, so store and search operations never fail on
// embedding trouble. Fallback vectors carry no semantic meaning and rank
// essentially randomly against genuine embeddings.
type Client struct {
	config     *Config
	httpClient *http.Client
	log        *logrus.Logger
}

// NewClient creates a new embedding client.
func NewClient(config *Config, log *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log,
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate returns a Dimension-length embedding for text. It never fails:
// backend errors are logged and replaced by a fallback vector.
func (c *Client) Generate(ctx context.Context, text string) []float32 {
	embedding, err := c.requestEmbedding(ctx, text)
	if err != nil {
		c.log.WithError(err).Warn("Embedding backend failed, using fallback vector")
		return fallbackEmbedding(text)
	}

	c.log.WithField("dimension", len(embedding)).Debug("Embedding generated")
	return embedding
}

func (c *Client) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding API error: %d - %s", resp.StatusCode, respBody)
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	if len(result.Embedding) != Dimension {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(result.Embedding), Dimension)
	}

	return result.Embedding, nil
}

// fallbackEmbedding synthesizes a pseudo-random unit vector seeded from the
// text, so identical failing inputs map to identical vectors.
func fallbackEmbedding(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(hash[:8]))
	rng := rand.New(rand.NewSource(seed))

	embedding := make([]float32, Dimension)
	for i := range embedding {
		embedding[i] = rng.Float32()
	}

	return normalize(embedding)
}

// normalize scales a vector to unit length.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}

	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
