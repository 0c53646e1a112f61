package pipeline

import (
	"context"

	"github.com/bahoy/recs/core"
)

// Pipeline runs the shaping stages of one recommendation request in
// order: recall output goes in, the served list comes out. A failing
// node aborts the run; nil nodes are tolerated so callers can assemble
// the chain conditionally.
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if node == nil {
			continue
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
