package rerank

import (
	"sort"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
)

// Hybrid merges a preference-based list and a content-based list into one
// diversified ranking. Both lists are min-max normalized independently,
// then interleaved by alternating picks (highest remaining from each side)
// until the limit is reached, skipping duplicates.
//
// During interleaving no category may exceed ceil(limit/2) slots. The cap
// is advisory: a candidate blocked by it is skipped in favor of the next
// candidate in the same list, and re-admitted only when nothing else
// remains and the limit is still unfilled — the limit always wins.
type Hybrid struct{}

func (h *Hybrid) Name() string { return "rerank.hybrid" }

// Merge implements the interleaving described above. Inputs are expected in
// descending score order (retrievers guarantee it) and are not mutated;
// normalization happens on copies.
func (h *Hybrid) Merge(a, b []*core.Item, limit int) []*core.Item {
	if limit <= 0 {
		limit = core.DefaultLimit
	}

	qa := normalized(a, "preference")
	qb := normalized(b, "content")

	categoryCap := (limit + 1) / 2
	chosen := make([]*core.Item, 0, limit)
	seen := make(map[string]bool, limit)
	perCategory := make(map[string]int)

	fromA := true
	for len(chosen) < limit && (len(qa) > 0 || len(qb) > 0) {
		var it *core.Item
		if fromA {
			it = h.pick(&qa, seen, perCategory, categoryCap)
			if it == nil {
				it = h.pick(&qb, seen, perCategory, categoryCap)
			}
		} else {
			it = h.pick(&qb, seen, perCategory, categoryCap)
			if it == nil {
				it = h.pick(&qa, seen, perCategory, categoryCap)
			}
		}
		if it == nil {
			break // everything left is cap-blocked
		}
		seen[it.ID] = true
		perCategory[it.Category()]++
		chosen = append(chosen, it)
		fromA = !fromA
	}

	// Cap re-admission: the limit is a promise, the cap is not.
	if len(chosen) < limit {
		rest := append(qa, qb...)
		sort.SliceStable(rest, func(i, j int) bool {
			if rest[i].Score != rest[j].Score {
				return rest[i].Score > rest[j].Score
			}
			si, sj := hybridStart(rest[i]), hybridStart(rest[j])
			if !si.Equal(sj) {
				return si.Before(sj)
			}
			return rest[i].ID < rest[j].ID
		})
		for _, it := range rest {
			if len(chosen) >= limit {
				break
			}
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			chosen = append(chosen, it)
		}
	}

	return chosen
}

// pick removes and returns the best eligible candidate from the queue:
// not chosen yet and inside the category cap. Cap-blocked candidates stay
// queued; duplicates are discarded on sight.
func (h *Hybrid) pick(queue *[]*core.Item, seen map[string]bool, perCategory map[string]int, categoryCap int) *core.Item {
	q := *queue
	kept := q[:0]
	var picked *core.Item
	for i, it := range q {
		if picked != nil {
			kept = append(kept, q[i:]...)
			break
		}
		if seen[it.ID] {
			continue
		}
		if perCategory[it.Category()] >= categoryCap {
			kept = append(kept, it)
			continue
		}
		picked = it
	}
	*queue = kept
	return picked
}

// normalized min-max scales a copy of the list into [0,1]; a single-element
// list normalizes to 1.0, as does a constant-score list.
func normalized(items []*core.Item, mergeSource string) []*core.Item {
	if len(items) == 0 {
		return nil
	}

	min, max := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		if it.Score < min {
			min = it.Score
		}
		if it.Score > max {
			max = it.Score
		}
	}

	out := make([]*core.Item, len(items))
	for i, it := range items {
		cp := *it
		cp.Labels = make(map[string]utils.Label, len(it.Labels)+1)
		for k, v := range it.Labels {
			cp.Labels[k] = v
		}
		if max == min {
			cp.Score = 1.0
		} else {
			cp.Score = (it.Score - min) / (max - min)
		}
		cp.PutLabel("merged_from", utils.Label{Value: mergeSource, Source: "rerank"})
		out[i] = &cp
	}
	return out
}

func hybridStart(it *core.Item) time.Time {
	if it.Event == nil {
		return time.Time{}
	}
	return it.Event.StartsAt
}
