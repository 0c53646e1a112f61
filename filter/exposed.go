package filter

import (
	"context"
	"time"

	"github.com/bahoy/recs/core"
)

// Exposed drops events the user already interacted with inside the time
// window, so results never re-surface what was just seen. The engine
// shapes with it whenever no exposure tracker is configured. Anonymous
// requests pass through untouched.
//
// An Exposed value belongs to a single request: it lazily loads the user's
// interacted-event set once and is not safe to share across requests.
type Exposed struct {
	Interactions core.InteractionStore

	// WindowDays bounds the lookback; 0 means core.DefaultWindowDays.
	WindowDays int

	seen   map[string]bool
	userID string
	asOf   time.Time
}

func NewExposed(interactions core.InteractionStore, windowDays int) *Exposed {
	return &Exposed{Interactions: interactions, WindowDays: windowDays}
}

func (f *Exposed) Name() string { return "filter.exposed" }

func (f *Exposed) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Interactions == nil {
		return false, nil
	}

	if f.seen == nil || f.userID != rctx.UserID || !f.asOf.Equal(rctx.At()) {
		windowDays := f.WindowDays
		if windowDays <= 0 {
			windowDays = core.DefaultWindowDays
		}
		history, err := f.Interactions.ListForUser(ctx, rctx.UserID, rctx.At().AddDate(0, 0, -windowDays))
		if err != nil {
			return false, err
		}
		f.seen = make(map[string]bool, len(history))
		for _, in := range history {
			f.seen[in.EventID] = true
		}
		f.userID = rctx.UserID
		f.asOf = rctx.At()
	}

	return f.seen[item.ID], nil
}
