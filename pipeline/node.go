package pipeline

import (
	"context"

	"github.com/bahoy/recs/core"
)

// Kind tags a Node with its stage, for observation and per-stage metrics.
type Kind string

const (
	KindRecall      Kind = "recall"      // generate candidates
	KindFilter      Kind = "filter"      // drop candidates that violate constraints
	KindRerank      Kind = "rerank"      // diversity / business reordering
	KindPostProcess Kind = "postprocess" // final result decoration
)

// Node is the smallest composable unit. Every stage has the same
// "items in, items out" shape: recall nodes ignore their input, filters
// shrink it, reranks reorder it.
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
