package core

import "context"

// VectorSearchRequest asks for the TopK nearest vectors in a collection.
// ExcludeIDs are dropped before TopK is applied.
type VectorSearchRequest struct {
	Collection string
	Vector     []float64
	TopK       int
	Metric     string // "cosine" (default), "euclidean", "inner_product"
	ExcludeIDs map[string]bool
}

// VectorSearchItem is one neighbor: event ID plus similarity score.
// For cosine the score is in [-1, 1].
type VectorSearchItem struct {
	ID    string
	Score float64
}

type VectorSearchResult struct {
	Items []VectorSearchItem
}

// VectorService is the nearest-neighbor lookup contract. Real deployments
// back it with an ANN index; store.MemoryVectorService is the exact
// in-process twin for tests and small catalogs.
type VectorService interface {
	Name() string
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)
	Close() error
}
