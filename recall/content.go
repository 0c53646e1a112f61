package recall

import (
	"context"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

const contentReason = "Basado en eventos que viste y guardaste"

// ContentRecall recommends by embedding similarity: the user vector is the
// centroid of the embeddings of events the user viewed or saved within the
// trailing window, and candidates are its nearest upcoming neighbors.
//
// The source needs both interaction history and embedded events; with
// neither it yields an empty list and the engine falls back. A nearest-
// neighbor timeout is treated the same way, never as a request failure.
type ContentRecall struct {
	Events       core.EventStore
	Interactions core.InteractionStore
	Index        VectorIndex

	WindowDays int
	Dimension  int // expected embedding dimension, default core.DefaultEmbeddingDimension
	TopK       int
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Events == nil || r.Interactions == nil || r.Index == nil ||
		rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	now := rctx.At()
	windowDays := r.WindowDays
	if windowDays <= 0 {
		windowDays = core.DefaultWindowDays
	}

	var history []*core.Interaction
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		history, e = r.Interactions.ListForUser(ctx, rctx.UserID, now.AddDate(0, 0, -windowDays))
		return e
	})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	centroid, exclude := r.userVector(ctx, history)
	if centroid == nil {
		// History exists but none of it is embedded yet.
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = core.DefaultLimit
	}

	// Over-fetch: excluded-by-date candidates are dropped below.
	neighbors, timedOut, err := nearestWithRetry(ctx, r.Index, centroid, topK*3, exclude)
	if timedOut {
		// Long-running ANN lookup: equivalent to "no content
		// candidates", the engine falls back to popular.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, topK)
	for _, nb := range neighbors {
		if len(out) >= topK {
			break
		}
		ev, err := r.Events.GetByID(ctx, nb.ID)
		if err != nil || !ev.Upcoming(now) {
			continue
		}
		it := core.NewItem(ev)
		it.Score = nb.Score
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: contentReason, Source: "recall"})
		out = append(out, it)
	}

	// Neighbors arrive in descending similarity; re-sort only settles ties
	// (soonest start, then ID) for full determinism.
	sortCandidates(out)
	return out, nil
}

// userVector returns the centroid of the embeddings behind the user's
// qualifying interactions (views and saves), plus the full set of
// interacted event IDs to exclude from the results.
func (r *ContentRecall) userVector(ctx context.Context, history []*core.Interaction) ([]float64, map[string]bool) {
	dim := r.Dimension
	if dim <= 0 {
		dim = core.DefaultEmbeddingDimension
	}

	exclude := make(map[string]bool, len(history))
	var centroid []float64
	var n int

	for _, in := range history {
		exclude[in.EventID] = true
		if in.Type != core.InteractionView && in.Type != core.InteractionSave {
			continue
		}
		ev, err := r.Events.GetByID(ctx, in.EventID)
		if err != nil || !ev.HasEmbedding(dim) {
			continue
		}
		if centroid == nil {
			centroid = make([]float64, dim)
		}
		for i, v := range ev.Embedding {
			centroid[i] += v
		}
		n++
	}

	if n == 0 {
		return nil, exclude
	}
	for i := range centroid {
		centroid[i] /= float64(n)
	}
	return centroid, exclude
}
