// Package memory defines the vector storage and embedding interfaces used by
// the retrieval layer.
package memory

import "context"

// VectorStore defines the interface for a vector database.
type VectorStore interface {
	// EnsureCollection creates a collection if it does not already exist.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	// Upsert adds or updates points in the vector store.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the nearest points to the given vector, with their
	// stored vectors included so callers can re-rank.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
	// DeleteCollection removes a collection and all its points.
	DeleteCollection(ctx context.Context, name string) error
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)
	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (uint64, error)
}

// Point represents a data point in the vector store.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

// SearchResult represents a result from a vector search.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder defines the interface for converting text to vectors.
type Embedder interface {
	// Embed converts a text string into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}
