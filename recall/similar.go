package recall

import (
	"context"
	"fmt"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

// SimilarRecall returns the nearest neighbors of one explicit event.
// Unlike the personalized sources it does not fall back: a missing event
// or a missing embedding is a caller error (MISSING_EVENT_OR_EMBEDDING).
type SimilarRecall struct {
	Events core.EventStore
	Index  VectorIndex

	Dimension int
	TopK      int
}

func (r *SimilarRecall) Name() string { return "recall.similar" }

func (r *SimilarRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	eventID := rctx.Param("event_id")
	if eventID == "" {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidRequest, "recall: similar requires event_id")
	}

	var ref *core.Event
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		ref, e = r.Events.GetByID(ctx, eventID)
		if core.IsNotFound(e) {
			// Retrying a miss will not make the event appear.
			ref, e = nil, nil
		}
		return e
	})
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeMissingEmbedding,
			fmt.Sprintf("recall: event %q not found", eventID))
	}

	dim := r.Dimension
	if dim <= 0 {
		dim = core.DefaultEmbeddingDimension
	}
	if !ref.HasEmbedding(dim) {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeMissingEmbedding,
			fmt.Sprintf("recall: event %q has no embedding", eventID))
	}

	topK := r.TopK
	if topK <= 0 {
		topK = core.DefaultLimit
	}

	now := rctx.At()
	exclude := map[string]bool{ref.ID: true}
	neighbors, timedOut, err := nearestWithRetry(ctx, r.Index, ref.Embedding, topK*3, exclude)
	if timedOut {
		// Similar has no fallback; the engine degrades this to an empty
		// successful response like any other index outage.
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUpstreamUnavailable,
			fmt.Sprintf("recall: neighbor lookup for %q timed out", eventID))
	}
	if err != nil {
		return nil, err
	}

	title := ref.Title
	if rs := []rune(title); len(rs) > 40 {
		title = string(rs[:40])
	}
	category := ref.Category
	if category == "" {
		category = "mismo género"
	}
	reason := fmt.Sprintf("Similar a '%s' · categoría: %s", title, category)

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
		it.PutLabel("recall_source", utils.Label{Value: "similar", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: reason, Source: "recall"})
		out = append(out, it)
	}

	sortCandidates(out)
	return out, nil
}
