package core

import (
	"time"

	"github.com/bahoy/recs/pkg/utils"
)

// RecommendContext carries user and request information through the whole
// pipeline. One value per request; stages read it, never mutate user data.
type RecommendContext struct {
	UserID string // empty for anonymous requests

	// Prefs is the user's declared profile, resolved once by the engine.
	// nil means the user has no stored preferences.
	Prefs *Preferences

	// Now is the request time. Every "upcoming" / trailing-window decision
	// derives from it so a request is a pure function of its inputs.
	Now time.Time

	// Params holds request-level context: "query", "barrio", "free_only"
	// for contextual recommendations, "event_id" for similar-to-event.
	Params map[string]any

	// Labels are request-level explanation labels (e.g. which fallback
	// fired), merged with the same rule as item labels.
	Labels map[string]utils.Label
}

// At returns rctx.Now, falling back to wall clock when unset.
func (rctx *RecommendContext) At() time.Time {
	if rctx == nil || rctx.Now.IsZero() {
		return time.Now().UTC()
	}
	return rctx.Now
}

// HasPreferences reports whether the user declared at least one preference.
func (rctx *RecommendContext) HasPreferences() bool {
	return rctx != nil && !rctx.Prefs.IsEmpty()
}

// Param returns a string request parameter, "" when absent.
func (rctx *RecommendContext) Param(key string) string {
	if rctx == nil || rctx.Params == nil {
		return ""
	}
	if s, ok := rctx.Params[key].(string); ok {
		return s
	}
	return ""
}

// PutLabel records a request-level label.
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = old.Merge(lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel returns a request-level label.
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
