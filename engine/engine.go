package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/filter"
	"github.com/bahoy/recs/pipeline"
	"github.com/bahoy/recs/recall"
	"github.com/bahoy/recs/rerank"
)

// ExposureTracker remembers what each user was shown: checked during
// shaping, updated after every served result.
type ExposureTracker interface {
	filter.ExposureChecker
	Mark(ctx context.Context, userID string, eventIDs []string) error
}

// Request is one recommendation call. Limit 0 means core.DefaultLimit;
// out-of-bounds limits are a caller error. Params carries per-type context:
// "event_id" for similar, "query"/"barrio"/"free_only" for contextual.
type Request struct {
	UserID string
	Type   core.RecType
	Limit  int
	Params map[string]any

	// Now pins the request time; zero means wall clock. Batch replays and
	// tests set it so a request is a pure function of its inputs.
	Now time.Time
}

// Engine is the single public entry point: it selects the strategy, runs
// retrieval, shapes the result and logs the impression. All collaborator
// fields are plain struct configuration; only the sources a deployment
// actually routes to need to be set.
type Engine struct {
	Preference recall.Source
	Popular    recall.Source
	Content    recall.Source
	Similar    recall.Source
	Contextual recall.Source

	// Preferences resolves the declared profile once per request. nil (or a
	// lookup failure) degrades to "no preferences", which is a fallback
	// condition, not an error.
	Preferences core.PreferenceStore

	// Log receives exactly one impression per successful call.
	Log core.InteractionStore

	Merger *rerank.Hybrid

	// Scenes maps a scene name (request param "scene") to an extra keep
	// rule applied during shaping, typically config-driven CEL expressions.
	Scenes map[string]filter.Filter

	// Exposure, when set, suppresses events a user has already been shown
	// and records each served result. When nil the engine falls back to
	// suppressing the user's interacted events straight from Log.
	// Anonymous requests bypass both.
	Exposure ExposureTracker

	// MaxPerCategory caps same-category events in personalized results;
	// 0 means core.DefaultMaxPerCategory.
	MaxPerCategory int

	Logger *zerolog.Logger
}

// Recommend runs one request end to end. The returned Result names the
// strategy that actually produced it, which differs from req.Type whenever
// a silent fallback fired.
func (e *Engine) Recommend(ctx context.Context, req *Request) (*core.Result, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: nil request")
	}
	limit, err := resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID: req.UserID,
		Now:    req.Now,
		Params: req.Params,
	}
	rctx.Prefs = e.resolvePreferences(ctx, req.UserID)

	items, actual, err := e.retrieve(ctx, req.Type, rctx, limit)
	if err != nil {
		return nil, err
	}

	items, err = e.shape(ctx, rctx, items, actual, limit)
	if err != nil {
		return nil, err
	}

	result := buildResult(actual, items)
	e.logImpression(ctx, req.UserID, result)
	return result, nil
}

func resolveLimit(limit int) (int, error) {
	if limit == 0 {
		return core.DefaultLimit, nil
	}
	if limit < core.MinLimit || limit > core.MaxLimit {
		return 0, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: limit out of bounds")
	}
	return limit, nil
}

func (e *Engine) resolvePreferences(ctx context.Context, userID string) *core.Preferences {
	if e.Preferences == nil || userID == "" {
		return nil
	}
	prefs, err := e.Preferences.GetPreferences(ctx, userID)
	if err != nil {
		e.logger().Warn().Err(err).Str("user_id", userID).
			Msg("preference lookup failed, continuing without profile")
		return nil
	}
	return prefs
}

// retrieve runs the retrievers the requested type needs and applies the
// decision table to what they produced. A failing non-terminal retriever is
// an empty one; only the popular source, the terminal fallback, may fail
// the request.
func (e *Engine) retrieve(
	ctx context.Context,
	requested core.RecType,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, core.RecType, error) {
	pre := Preconditions{
		HasPreferences: rctx.HasPreferences(),
		HasEventID:     rctx.Param("event_id") != "",
	}

	switch requested {
	case core.RecPersonalized:
		items := e.recallQuiet(ctx, e.Preference, rctx)
		pre.PreferenceHits = len(items) > 0
		if actual := Decide(requested, pre); actual == core.RecPersonalized {
			return items, actual, nil
		}
		return e.recallPopular(ctx, rctx)

	case core.RecContent:
		items := e.recallQuiet(ctx, e.Content, rctx)
		pre.ContentHits = len(items) > 0
		if actual := Decide(requested, pre); actual == core.RecContent {
			return items, actual, nil
		}
		return e.recallPopular(ctx, rctx)

	case core.RecHybrid:
		prefItems, contentItems := e.recallBoth(ctx, rctx)
		pre.PreferenceHits = len(prefItems) > 0
		pre.ContentHits = len(contentItems) > 0
		switch actual := Decide(requested, pre); actual {
		case core.RecHybrid:
			merger := e.Merger
			if merger == nil {
				merger = &rerank.Hybrid{}
			}
			return merger.Merge(prefItems, contentItems, limit), actual, nil
		case core.RecPersonalized:
			return prefItems, actual, nil
		case core.RecContent:
			return contentItems, actual, nil
		default:
			return e.recallPopular(ctx, rctx)
		}

	case core.RecSimilar:
		if e.Similar == nil {
			return nil, "", core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: similar strategy not configured")
		}
		items, err := e.Similar.Recall(ctx, rctx)
		if err != nil {
			if core.IsUpstreamUnavailable(err) {
				// No fallback is defined for similar; a degraded index
				// yields an empty, still-successful response.
				e.logger().Warn().Err(err).Msg("similar retrieval degraded to empty")
				return nil, core.RecSimilar, nil
			}
			return nil, "", err
		}
		return items, core.RecSimilar, nil

	case core.RecContextual:
		if e.Contextual == nil {
			return nil, "", core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: contextual strategy not configured")
		}
		items, err := e.Contextual.Recall(ctx, rctx)
		if err != nil {
			return nil, "", err
		}
		return items, core.RecContextual, nil

	case core.RecPopular:
		return e.recallPopular(ctx, rctx)
	}

	return nil, "", core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: unknown recommendation type: "+string(requested))
}

// recallQuiet treats any retriever failure as an empty candidate list, the
// condition that triggers fallback.
func (e *Engine) recallQuiet(ctx context.Context, src recall.Source, rctx *core.RecommendContext) []*core.Item {
	if src == nil {
		return nil
	}
	items, err := src.Recall(ctx, rctx)
	if err != nil {
		e.logger().Warn().Err(err).Str("source", src.Name()).
			Msg("retrieval failed, treating as empty")
		return nil
	}
	return items
}

// recallBoth runs the preference and content retrievers concurrently.
// Neither blocks the other; per-source failures become empty lists.
func (e *Engine) recallBoth(ctx context.Context, rctx *core.RecommendContext) (prefItems, contentItems []*core.Item) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		prefItems = e.recallQuiet(egCtx, e.Preference, rctx)
		return nil
	})
	eg.Go(func() error {
		contentItems = e.recallQuiet(egCtx, e.Content, rctx)
		return nil
	})
	_ = eg.Wait() // goroutines never return errors
	return prefItems, contentItems
}

func (e *Engine) recallPopular(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, core.RecType, error) {
	if e.Popular == nil {
		return nil, "", core.NewDomainError(core.ModuleEngine, core.ErrorCodeUpstreamUnavailable, "engine: popular strategy not configured")
	}
	items, err := e.Popular.Recall(ctx, rctx)
	if err != nil {
		// The terminal fallback has nothing to fall back to.
		return nil, "", err
	}
	return items, core.RecPopular, nil
}

// shape deduplicates by event ID, drops ended events, diversifies
// personalized results and trims to the limit.
func (e *Engine) shape(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
	actual core.RecType,
	limit int,
) ([]*core.Item, error) {
	seen := make(map[string]bool, len(items))
	deduped := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil || it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		deduped = append(deduped, it)
	}

	filters := []filter.Filter{&filter.Upcoming{}}
	switch {
	case e.Exposure != nil:
		filters = append(filters, &filter.Seen{Checker: e.Exposure})
	case e.Log != nil:
		// No tracker configured: approximate "already shown" with the
		// user's interacted events. Exposed is per-request state, so a
		// fresh one is built here every call.
		filters = append(filters, filter.NewExposed(e.Log, 0))
	}
	if scene := rctx.Param("scene"); scene != "" {
		if f, ok := e.Scenes[scene]; ok {
			filters = append(filters, f)
		}
	}
	nodes := []pipeline.Node{
		&filter.Node{Filters: filters},
	}
	if actual == core.RecPersonalized {
		nodes = append(nodes, &rerank.Diversity{MaxPerCategory: e.MaxPerCategory})
	}
	nodes = append(nodes, &rerank.TopN{N: limit})

	p := &pipeline.Pipeline{Nodes: nodes}
	return p.Run(ctx, rctx, deduped)
}

func buildResult(actual core.RecType, items []*core.Item) *core.Result {
	recs := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		if it.Event == nil {
			continue
		}
		reason := it.Label("reason")
		if reason == "" {
			reason = defaultReason(actual)
		}
		recs = append(recs, core.Recommendation{Event: it.Event, Reason: reason})
	}
	return &core.Result{RecType: actual, Recommendations: recs}
}

func defaultReason(t core.RecType) string {
	switch t {
	case core.RecPopular:
		return "Evento popular en la comunidad Bahoy"
	case core.RecContextual:
		return "Próximamente en Buenos Aires"
	default:
		return "Recomendado para vos"
	}
}

// logImpression appends the impression synchronously before the call
// returns, so metrics capture is at-least-once. The write survives caller
// cancellation and its failure is reported, never propagated.
func (e *Engine) logImpression(ctx context.Context, userID string, result *core.Result) {
	if e.Log == nil {
		return
	}
	imp := &core.Impression{
		ID:        uuid.NewString(),
		UserID:    userID,
		RecType:   result.RecType,
		EventIDs:  result.EventIDs(),
		Timestamp: time.Now().UTC(),
	}
	logCtx := context.WithoutCancel(ctx)
	if err := e.Log.AppendImpression(logCtx, imp); err != nil {
		logErr := core.NewDomainError(core.ModuleEngine, core.ErrorCodeImpressionLog, "engine: impression append failed: "+err.Error())
		e.logger().Error().Err(logErr).Str("rec_type", string(result.RecType)).
			Msg("impression lost")
	}
	if e.Exposure != nil && userID != "" && len(imp.EventIDs) > 0 {
		if err := e.Exposure.Mark(logCtx, userID, imp.EventIDs); err != nil {
			e.logger().Warn().Err(err).Msg("exposure mark failed")
		}
	}
}

func (e *Engine) logger() *zerolog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// RecordInteraction validates and appends one user action to the log.
func (e *Engine) RecordInteraction(ctx context.Context, in *core.Interaction) error {
	if e.Log == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeUpstreamUnavailable, "engine: no interaction log configured")
	}
	if in == nil || in.UserID == "" || in.EventID == "" {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: interaction requires user_id and event_id")
	}
	switch in.Type {
	case core.InteractionView, core.InteractionClick, core.InteractionSave, core.InteractionShare:
	default:
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidRequest, "engine: unknown interaction type: "+string(in.Type))
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	return e.Log.Append(ctx, in)
}
