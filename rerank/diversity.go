package rerank

import (
	"context"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pipeline"
)

// Diversity caps how many events of one category survive, preserving the
// incoming order. Personalized results use it so a theater lover still
// sees something other than theater.
type Diversity struct {
	// MaxPerCategory caps each category; 0 means core.DefaultMaxPerCategory.
	MaxPerCategory int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindRerank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	maxPer := n.MaxPerCategory
	if maxPer <= 0 {
		maxPer = core.DefaultMaxPerCategory
	}

	perCategory := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cat := it.Category()
		if perCategory[cat] >= maxPer {
			continue
		}
		perCategory[cat]++
		out = append(out, it)
	}
	return out, nil
}
