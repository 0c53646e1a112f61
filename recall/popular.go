package recall

import (
	"context"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

const popularReason = "Evento popular en la comunidad Bahoy"

// PopularRecall is the cold-start and terminal fallback: it always returns
// a result. Every upcoming event is scored by a weighted sum of interaction
// counts over a trailing window, divided by the event's age in days so old
// high-traffic events do not own the feed forever. When fewer events carry
// signal than requested, the soonest upcoming events fill the rest.
type PopularRecall struct {
	Events       core.EventStore
	Interactions core.InteractionStore

	// Cache optionally holds a precomputed popularity ranking in a sorted
	// set (member = event ID, score = popularity). When present and
	// non-empty, it replaces recomputation from the interaction log.
	Cache    core.KeyValueStore
	CacheKey string // default "popular:events"

	Weights    core.PopularityWeights
	WindowDays int
	TopK       int
}

func (r *PopularRecall) Name() string { return "recall.popular" }

func (r *PopularRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Events == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUpstreamUnavailable, "recall: popular source has no event store")
	}

	now := rctx.At()
	topK := r.TopK
	if topK <= 0 {
		topK = core.DefaultLimit
	}

	var upcoming []*core.Event
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		upcoming, e = r.Events.ListUpcoming(ctx, now, core.EventFilter{})
		return e
	})
	if err != nil {
		return nil, err
	}

	scores := r.cachedScores(ctx, upcoming)
	if scores == nil {
		scores, err = r.computeScores(ctx, now)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*core.Item, 0, topK)
	seen := make(map[string]bool, topK)

	scored := make([]*core.Item, 0, len(upcoming))
	for _, ev := range upcoming {
		raw, ok := scores[ev.ID]
		if !ok || raw <= 0 {
			continue
		}
		it := core.NewItem(ev)
		it.Score = raw / (1 + ageDays(ev, now))
		it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: popularReason, Source: "recall"})
		scored = append(scored, it)
	}
	sortCandidates(scored)
	for _, it := range scored {
		if len(out) >= topK {
			break
		}
		out = append(out, it)
		seen[it.ID] = true
	}

	// Complement with the soonest upcoming events. upcoming is already
	// ordered by start time, so this also covers the no-signal case.
	for _, ev := range upcoming {
		if len(out) >= topK {
			break
		}
		if seen[ev.ID] {
			continue
		}
		it := core.NewItem(ev)
		it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: popularReason, Source: "recall"})
		out = append(out, it)
		seen[ev.ID] = true
	}

	return out, nil
}

// cachedScores reads the precomputed ranking; nil when the cache is absent,
// empty or failing (then the interaction log is the source of truth).
func (r *PopularRecall) cachedScores(ctx context.Context, upcoming []*core.Event) map[string]float64 {
	if r.Cache == nil {
		return nil
	}
	key := r.CacheKey
	if key == "" {
		key = "popular:events"
	}
	members, err := r.Cache.ZRange(ctx, key, 0, int64(len(upcoming)))
	if err != nil || len(members) == 0 {
		return nil
	}
	scores := make(map[string]float64, len(members))
	for _, id := range members {
		score, err := r.Cache.ZScore(ctx, key, id)
		if err != nil {
			continue
		}
		scores[id] = score
	}
	return scores
}

func (r *PopularRecall) computeScores(ctx context.Context, now time.Time) (map[string]float64, error) {
	if r.Interactions == nil {
		return map[string]float64{}, nil
	}

	windowDays := r.WindowDays
	if windowDays <= 0 {
		windowDays = core.DefaultWindowDays
	}
	since := now.AddDate(0, 0, -windowDays)

	var interactions []*core.Interaction
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		interactions, e = r.Interactions.ListSince(ctx, since)
		return e
	})
	if err != nil {
		return nil, err
	}

	weights := r.Weights
	if (weights == core.PopularityWeights{}) {
		weights = core.DefaultPopularityWeights()
	}

	scores := make(map[string]float64)
	for _, in := range interactions {
		scores[in.EventID] += weights.Weight(in.Type)
	}
	return scores, nil
}

func ageDays(ev *core.Event, now time.Time) float64 {
	if ev.CreatedAt.IsZero() || ev.CreatedAt.After(now) {
		return 0
	}
	return now.Sub(ev.CreatedAt).Hours() / 24
}
