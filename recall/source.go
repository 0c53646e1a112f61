package recall

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bahoy/recs/core"
)

// Source is a reusable candidate retriever (preference / popular / content /
// similar). A Source that has nothing to say returns (nil, nil); errors are
// reserved for upstream failures and caller mistakes.
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// VectorIndex is the nearest-neighbor lookup the embedding-based sources
// depend on. Results come back in descending similarity order, already
// filtered by the similarity floor.
type VectorIndex interface {
	NearestTo(ctx context.Context, vector []float64, k int, exclude map[string]bool) ([]core.VectorSearchItem, error)
}

// withRetry runs op, retrying once with a short exponential backoff.
// Store and index reads are retried at the retriever level; a second
// failure surfaces as UPSTREAM_UNAVAILABLE and the engine decides whether
// that is fatal.
func withRetry(ctx context.Context, module string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx))
	if err != nil {
		return core.NewDomainError(module, core.ErrorCodeUpstreamUnavailable, module+": upstream read failed: "+err.Error())
	}
	return nil
}

// nearestWithRetry runs an index lookup under the same retry policy as
// store reads. A deadline expiry is reported through timedOut and never
// retried: the index already got its full time budget, and each retriever
// decides whether a slow index means "no candidates" or a hard failure.
func nearestWithRetry(
	ctx context.Context,
	idx VectorIndex,
	vector []float64,
	k int,
	exclude map[string]bool,
) (neighbors []core.VectorSearchItem, timedOut bool, err error) {
	err = withRetry(ctx, core.ModuleRecall, func() error {
		var e error
		neighbors, e = idx.NearestTo(ctx, vector, k, exclude)
		if errors.Is(e, context.DeadlineExceeded) {
			timedOut = true
			return backoff.Permanent(e)
		}
		return e
	})
	if timedOut {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return neighbors, false, nil
}

// sortCandidates orders items for full determinism: score descending, then
// soonest start, then event ID.
func sortCandidates(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		si, sj := startOf(items[i]), startOf(items[j])
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return items[i].ID < items[j].ID
	})
}

func startOf(it *core.Item) time.Time {
	if it.Event == nil {
		return time.Time{}
	}
	return it.Event.StartsAt
}
