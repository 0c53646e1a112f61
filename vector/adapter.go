package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/recall"
)

// IndexAdapter narrows a core.VectorService to the NearestTo contract the
// retrievers use: cosine metric, a similarity floor, an exclusion set and a
// hard timeout. ANN lookups over large catalogs can be slow; expiring here
// lets the caller treat the lookup as empty instead of failing the request.
type IndexAdapter struct {
	Service    core.VectorService
	Collection string

	// Dimension is the globally agreed embedding size; query vectors of any
	// other length are rejected before touching the index.
	Dimension int

	// Floor discards neighbors with similarity at or below it (default 0).
	Floor float64

	Timeout time.Duration
}

func NewIndexAdapter(service core.VectorService, collection string) *IndexAdapter {
	return &IndexAdapter{
		Service:    service,
		Collection: collection,
		Dimension:  core.DefaultEmbeddingDimension,
		Floor:      core.DefaultSimilarityFloor,
		Timeout:    core.DefaultVectorTimeout,
	}
}

func (a *IndexAdapter) NearestTo(
	ctx context.Context,
	vector []float64,
	k int,
	exclude map[string]bool,
) ([]core.VectorSearchItem, error) {
	if a.Service == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeUpstreamUnavailable, "vector: no index service configured")
	}
	if a.Dimension > 0 && len(vector) != a.Dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidRequest,
			fmt.Sprintf("vector: query dimension %d, index expects %d", len(vector), a.Dimension))
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = core.DefaultVectorTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := a.Service.Search(ctx, &core.VectorSearchRequest{
		Collection: a.Collection,
		Vector:     vector,
		TopK:       k,
		Metric:     "cosine",
		ExcludeIDs: exclude,
	})
	if err != nil {
		return nil, err
	}

	out := make([]core.VectorSearchItem, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Score <= a.Floor {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

var _ recall.VectorIndex = (*IndexAdapter)(nil)
