package filter

import (
	"context"

	"github.com/bahoy/recs/core"
)

// ExposureChecker answers whether a user was already shown an event. It may
// be probabilistic (bloom-backed): false positives suppress an event for
// one user, false negatives must not occur.
type ExposureChecker interface {
	Seen(ctx context.Context, userID, eventID string) bool
}

// Seen drops events the user has already been shown. Anonymous requests
// pass everything through.
type Seen struct {
	Checker ExposureChecker
}

func (f *Seen) Name() string { return "filter.seen" }

func (f *Seen) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Checker == nil || rctx == nil || rctx.UserID == "" || item == nil {
		return false, nil
	}
	return f.Checker.Seen(ctx, rctx.UserID, item.ID), nil
}
