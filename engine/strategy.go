package engine

import "github.com/bahoy/recs/core"

// Preconditions are the facts strategy selection runs on. The engine fills
// them from the request and from what the retrievers actually produced;
// Decide itself touches no I/O, so every fallback rule is testable as a
// plain table.
type Preconditions struct {
	HasPreferences bool // user declared at least one preference
	HasEventID     bool // request carries an event_id parameter
	PreferenceHits bool // preference retrieval yielded candidates
	ContentHits    bool // content retrieval yielded candidates
}

// Decide maps (requested type, preconditions) to the strategy that actually
// serves the request. Fallback is silent: a personalized request from a user
// with nothing to personalize on becomes a popular response, never an error.
// Similar is the exception and keeps its requested type; its failure mode is
// a caller error raised at retrieval.
func Decide(requested core.RecType, pre Preconditions) core.RecType {
	switch requested {
	case core.RecPersonalized:
		if pre.HasPreferences && pre.PreferenceHits {
			return core.RecPersonalized
		}
		return core.RecPopular

	case core.RecContent:
		if pre.ContentHits {
			return core.RecContent
		}
		return core.RecPopular

	case core.RecHybrid:
		switch {
		case pre.PreferenceHits && pre.ContentHits:
			return core.RecHybrid
		case pre.PreferenceHits:
			return core.RecPersonalized
		case pre.ContentHits:
			return core.RecContent
		default:
			return core.RecPopular
		}

	case core.RecSimilar:
		return core.RecSimilar

	case core.RecContextual:
		return core.RecContextual
	}
	return core.RecPopular
}
