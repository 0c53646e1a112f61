package filter

import (
	"context"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pipeline"
	"github.com/bahoy/recs/pkg/utils"
)

// Filter decides whether one candidate must be dropped.
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Node composes filters into a pipeline stage. A candidate is dropped as
// soon as any filter says so; a failing filter is skipped, never fatal.
type Node struct {
	Filters []Filter
}

func (n *Node) Name() string        { return "filter.node" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		dropped := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if ok {
				item.PutLabel("filtered", utils.Label{Value: "true", Source: f.Name()})
				dropped = true
				break
			}
		}
		if !dropped {
			out = append(out, item)
		}
	}
	return out, nil
}
