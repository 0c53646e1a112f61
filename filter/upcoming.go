package filter

import (
	"context"

	"github.com/bahoy/recs/core"
)

// Upcoming drops events that already started (or carry no start time at
// all). Result shaping guarantees every returned event starts in the
// future relative to the request time.
type Upcoming struct{}

func (f *Upcoming) Name() string { return "filter.upcoming" }

func (f *Upcoming) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Event == nil {
		return true, nil
	}
	return !item.Event.Upcoming(rctx.At()), nil
}
