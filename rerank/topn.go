package rerank

import (
	"context"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pipeline"
)

// TopN truncates to the first N items. N <= 0 keeps everything.
type TopN struct {
	N int
}

func (n *TopN) Name() string        { return "rerank.topn" }
func (n *TopN) Kind() pipeline.Kind { return pipeline.KindRerank }

func (n *TopN) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
