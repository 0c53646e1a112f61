package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/bahoy/recs/core"
)

// MemoryVectorService is an exact in-process nearest-neighbor index. It
// exists so content-based and similar-to-event retrieval run without an
// external ANN service; for a catalog of thousands of events brute force
// is fast enough and, unlike an approximate index, fully deterministic.
type MemoryVectorService struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string]map[string][]float64 // collection -> id -> vector
}

// NewMemoryVectorService builds an index for vectors of the given
// dimension. dim <= 0 means core.DefaultEmbeddingDimension.
func NewMemoryVectorService(dim int) *MemoryVectorService {
	if dim <= 0 {
		dim = core.DefaultEmbeddingDimension
	}
	return &MemoryVectorService{
		dimension: dim,
		vectors:   make(map[string]map[string][]float64),
	}
}

func (s *MemoryVectorService) Name() string { return "memory_vector" }

// Upsert stores a vector under the given collection and ID. Vectors of the
// wrong dimension are rejected.
func (s *MemoryVectorService) Upsert(collection, id string, vector []float64) error {
	if len(vector) != s.dimension {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidRequest,
			"vector dimension mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors[collection] == nil {
		s.vectors[collection] = make(map[string][]float64)
	}
	cp := make([]float64, len(vector))
	copy(cp, vector)
	s.vectors[collection][id] = cp
	return nil
}

func (s *MemoryVectorService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil || len(req.Vector) == 0 {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidRequest,
			"empty search vector")
	}
	if len(req.Vector) != s.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidRequest,
			"vector dimension mismatch")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.vectors[req.Collection]
	items := make([]core.VectorSearchItem, 0, len(coll))
	for id, vec := range coll {
		if req.ExcludeIDs[id] {
			continue
		}
		score, ok := similarity(req.Metric, req.Vector, vec)
		if !ok {
			continue
		}
		items = append(items, core.VectorSearchItem{ID: id, Score: score})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})

	topK := req.TopK
	if topK <= 0 {
		topK = core.DefaultLimit
	}
	if len(items) > topK {
		items = items[:topK]
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (s *MemoryVectorService) Close() error { return nil }

// similarity scores a candidate against the query; higher is always better,
// so euclidean distance is negated. Zero-norm vectors are unscorable under
// cosine and are skipped.
func similarity(metric string, query, candidate []float64) (float64, bool) {
	switch metric {
	case "", "cosine":
		return cosine(query, candidate)
	case "euclidean":
		var sum float64
		for i := range query {
			d := query[i] - candidate[i]
			sum += d * d
		}
		return -math.Sqrt(sum), true
	case "inner_product":
		var dot float64
		for i := range query {
			dot += query[i] * candidate[i]
		}
		return dot, true
	default:
		return cosine(query, candidate)
	}
}

func cosine(a, b []float64) (float64, bool) {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

var _ core.VectorService = (*MemoryVectorService)(nil)
