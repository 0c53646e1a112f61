package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

// PreferenceWeights scores one matched preference dimension each. With the
// defaults (1/1/1, no bonuses) the score is exactly the count of matched
// dimensions; heavier weightings stay expressible through config.
type PreferenceWeights struct {
	Category   float64 `yaml:"category"`
	Barrio     float64 `yaml:"barrio"`
	Price      float64 `yaml:"price"`
	Tag        float64 `yaml:"tag"`        // per matched interest tag
	Proximity  float64 `yaml:"proximity"`  // starts within 3 days
	Proximity7 float64 `yaml:"proximity7"` // starts within 7 days
}

// DefaultPreferenceWeights counts matched dimensions, nothing more.
func DefaultPreferenceWeights() PreferenceWeights {
	return PreferenceWeights{Category: 1, Barrio: 1, Price: 1}
}

func (w PreferenceWeights) isZero() bool {
	return w == PreferenceWeights{}
}

// PreferenceRecall filters the catalog by the user's declared preferences
// and scores each candidate by how many preference dimensions it matches.
// A user without declared preferences yields an empty list, which the
// engine turns into the popular fallback.
type PreferenceRecall struct {
	Events core.EventStore

	Weights PreferenceWeights

	// TopK caps the candidate list; 0 means core.DefaultLimit * 5 so the
	// reranker still has room to diversify.
	TopK int
}

func (r *PreferenceRecall) Name() string { return "recall.preference" }

func (r *PreferenceRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Events == nil || rctx == nil || !rctx.HasPreferences() {
		return nil, nil
	}

	prefs := rctx.Prefs
	now := rctx.At()

	topK := r.TopK
	if topK <= 0 {
		topK = core.DefaultLimit * 5
	}

	filter := core.EventFilter{
		Categories: prefs.FavoriteCategories,
		Limit:      topK,
	}
	if prefs.PriceRange != nil {
		max := prefs.PriceRange.Max
		filter.PriceMax = &max
	}

	var candidates []*core.Event
	err := withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		candidates, e = r.Events.ListUpcoming(ctx, now, filter)
		return e
	})
	if err != nil {
		return nil, err
	}

	// No match on favorite categories: widen to every upcoming event so
	// barrio and price preferences can still speak.
	if len(candidates) == 0 && len(prefs.FavoriteCategories) > 0 {
		err = withRetry(ctx, core.ModuleRecall, func() error {
			var e error
			candidates, e = r.Events.ListUpcoming(ctx, now, core.EventFilter{Limit: topK})
			return e
		})
		if err != nil {
			return nil, err
		}
	}

	weights := r.Weights
	if weights.isZero() {
		weights = DefaultPreferenceWeights()
	}

	out := make([]*core.Item, 0, len(candidates))
	for _, ev := range candidates {
		score, reason := scoreByPreferences(ev, prefs, weights, rctx)
		if score <= 0 {
			continue
		}
		it := core.NewItem(ev)
		it.Score = score
		it.PutLabel("recall_source", utils.Label{Value: "preference", Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: reason, Source: "recall"})
		out = append(out, it)
	}

	sortCandidates(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// scoreByPreferences computes the relevance score and builds the reason
// copy shown to the user ("Porque te gustan: eventos de Teatro · en
// Palermo · dentro de tu rango de precio").
func scoreByPreferences(ev *core.Event, prefs *core.Preferences, w PreferenceWeights, rctx *core.RecommendContext) (float64, string) {
	var score float64
	var reasons []string

	if ev.Category != "" && containsFold(prefs.FavoriteCategories, ev.Category) {
		score += w.Category
		reasons = append(reasons, "eventos de "+ev.Category)
	}

	if ev.Barrio != "" && containsFold(prefs.FavoriteBarrios, ev.Barrio) {
		score += w.Barrio
		reasons = append(reasons, "en "+ev.Barrio)
	}

	if prefs.PriceRange != nil {
		if ev.IsFree {
			score += w.Price
			reasons = append(reasons, "gratuito")
		} else if ev.PriceMin != nil && *ev.PriceMin <= prefs.PriceRange.Max {
			score += w.Price
			reasons = append(reasons, "dentro de tu rango de precio")
		}
	}

	if len(prefs.InterestTags) > 0 {
		matched := matchedTags(ev, prefs.InterestTags)
		if len(matched) > 0 {
			score += w.Tag * float64(len(matched))
			reasons = append(reasons, "etiquetado: "+strings.Join(matched, ", "))
		}
	}

	if !ev.StartsAt.IsZero() {
		days := ev.StartsAt.Sub(rctx.At()).Hours() / 24
		switch {
		case days <= 3:
			score += w.Proximity
		case days <= 7:
			score += w.Proximity7
		}
	}

	if len(reasons) == 0 {
		return score, "Próximamente en Buenos Aires"
	}
	return score, fmt.Sprintf("Porque te gustan: %s", strings.Join(reasons, " · "))
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func matchedTags(ev *core.Event, interests []string) []string {
	var matched []string
	for _, tag := range interests {
		if ev.HasTag(tag) {
			matched = append(matched, strings.ToLower(tag))
		}
	}
	sort.Strings(matched)
	return matched
}
