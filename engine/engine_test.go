package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/pkg/utils"
	"github.com/bahoy/recs/recall"
	"github.com/bahoy/recs/store"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// stubSource is a canned retriever for engine-level tests; the real
// retrievers have their own tests.
type stubSource struct {
	name  string
	items []*core.Item
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(context.Context, *core.RecommendContext) ([]*core.Item, error) {
	return s.items, s.err
}

func stubItems(prefix string, n int, startOffset time.Duration) []*core.Item {
	out := make([]*core.Item, 0, n)
	for i := 0; i < n; i++ {
		it := core.NewItem(&core.Event{
			ID:       fmt.Sprintf("%s-%d", prefix, i),
			Title:    fmt.Sprintf("Evento %s %d", prefix, i),
			Category: fmt.Sprintf("cat-%d", i),
			StartsAt: testNow.Add(startOffset + time.Duration(i)*time.Hour),
		})
		it.Score = float64(n - i)
		it.PutLabel("reason", utils.Label{Value: "stub reason", Source: "recall"})
		out = append(out, it)
	}
	return out
}

func testEngine() (*Engine, *store.MemoryLog) {
	log := store.NewMemoryLog()
	return &Engine{
		Preference: &stubSource{name: "recall.preference"},
		Popular:    &stubSource{name: "recall.popular", items: stubItems("pop", 5, 24*time.Hour)},
		Content:    &stubSource{name: "recall.content"},
		Log:        log,
	}, log
}

func TestRecommend_LimitBounds(t *testing.T) {
	e, _ := testEngine()

	for _, limit := range []int{-1, 51, 100} {
		_, err := e.Recommend(context.Background(), &Request{Type: core.RecPopular, Limit: limit, Now: testNow})
		if !core.IsInvalidRequest(err) {
			t.Errorf("limit %d: got %v, want INVALID_REQUEST", limit, err)
		}
	}

	result, err := e.Recommend(context.Background(), &Request{Type: core.RecPopular, Now: testNow})
	if err != nil {
		t.Fatalf("limit 0 should use the default, got %v", err)
	}
	if len(result.Recommendations) > core.DefaultLimit {
		t.Errorf("got %d recommendations, default limit is %d", len(result.Recommendations), core.DefaultLimit)
	}
}

func TestRecommend_ColdStartFallsBackToPopular(t *testing.T) {
	e, _ := testEngine()

	for _, reqType := range []core.RecType{core.RecPersonalized, core.RecHybrid, core.RecContent} {
		result, err := e.Recommend(context.Background(), &Request{
			UserID: "user-frio",
			Type:   reqType,
			Now:    testNow,
		})
		if err != nil {
			t.Fatalf("%s: cold start must not error, got %v", reqType, err)
		}
		if result.RecType != core.RecPopular {
			t.Errorf("%s: got type %q, want %q", reqType, result.RecType, core.RecPopular)
		}
		if len(result.Recommendations) == 0 {
			t.Errorf("%s: cold start returned no events", reqType)
		}
	}
}

func TestRecommend_ShapesResult(t *testing.T) {
	ended := core.NewItem(&core.Event{
		ID:       "ev-ended",
		Category: "Teatro",
		StartsAt: testNow.Add(-2 * time.Hour),
	})
	dup := stubItems("dup", 1, 24*time.Hour)[0]

	items := stubItems("pop", 8, 24*time.Hour)
	items = append(items, ended, dup, dup)

	log := store.NewMemoryLog()
	e := &Engine{
		Popular: &stubSource{name: "recall.popular", items: items},
		Log:     log,
	}

	result, err := e.Recommend(context.Background(), &Request{Type: core.RecPopular, Limit: 6, Now: testNow})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) != 6 {
		t.Fatalf("got %d recommendations, want limit 6", len(result.Recommendations))
	}
	seen := map[string]bool{}
	for _, rec := range result.Recommendations {
		if seen[rec.Event.ID] {
			t.Errorf("event %s returned twice", rec.Event.ID)
		}
		seen[rec.Event.ID] = true
		if !rec.Event.StartsAt.After(testNow) {
			t.Errorf("event %s already started at %v", rec.Event.ID, rec.Event.StartsAt)
		}
		if rec.Reason == "" {
			t.Errorf("event %s has no reason", rec.Event.ID)
		}
	}
}

func TestRecommend_SimilarErrors(t *testing.T) {
	catalog := store.NewMemoryCatalog(
		&core.Event{ID: "ev-plain", Title: "Sin vector", StartsAt: testNow.Add(24 * time.Hour)},
	)
	e := &Engine{
		Similar: &recall.SimilarRecall{Events: catalog, Index: nil, Dimension: 4},
		Popular: &stubSource{name: "recall.popular"},
		Log:     store.NewMemoryLog(),
	}

	_, err := e.Recommend(context.Background(), &Request{Type: core.RecSimilar, Now: testNow})
	if !core.IsInvalidRequest(err) {
		t.Errorf("missing event_id: got %v, want INVALID_REQUEST", err)
	}

	_, err = e.Recommend(context.Background(), &Request{
		Type:   core.RecSimilar,
		Now:    testNow,
		Params: map[string]any{"event_id": "ev-nope"},
	})
	if !core.IsMissingEventOrEmbedding(err) {
		t.Errorf("nonexistent event_id: got %v, want MISSING_EVENT_OR_EMBEDDING", err)
	}

	_, err = e.Recommend(context.Background(), &Request{
		Type:   core.RecSimilar,
		Now:    testNow,
		Params: map[string]any{"event_id": "ev-plain"},
	})
	if !core.IsMissingEventOrEmbedding(err) {
		t.Errorf("unembedded event: got %v, want MISSING_EVENT_OR_EMBEDDING", err)
	}
}

func TestRecommend_LogsOneImpression(t *testing.T) {
	e, log := testEngine()

	result, err := e.Recommend(context.Background(), &Request{
		UserID: "user-1",
		Type:   core.RecPersonalized,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}

	imps, err := log.ListImpressions(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(imps) != 1 {
		t.Fatalf("got %d impressions, want exactly 1", len(imps))
	}
	imp := imps[0]
	if imp.RecType != result.RecType {
		t.Errorf("impression type %q, result type %q", imp.RecType, result.RecType)
	}
	if imp.UserID != "user-1" {
		t.Errorf("impression user %q, want user-1", imp.UserID)
	}
	if len(imp.EventIDs) != len(result.Recommendations) {
		t.Errorf("impression logged %d IDs, result has %d events", len(imp.EventIDs), len(result.Recommendations))
	}
	if imp.ID == "" {
		t.Error("impression has no ID")
	}
}

type failingLog struct {
	*store.MemoryLog
}

func (f *failingLog) AppendImpression(context.Context, *core.Impression) error {
	return errors.New("disk full")
}

func TestRecommend_ImpressionFailureNotPropagated(t *testing.T) {
	e, _ := testEngine()
	e.Log = &failingLog{MemoryLog: store.NewMemoryLog()}

	result, err := e.Recommend(context.Background(), &Request{Type: core.RecPopular, Now: testNow})
	if err != nil {
		t.Fatalf("impression failure must not fail the call, got %v", err)
	}
	if len(result.Recommendations) == 0 {
		t.Error("result lost along with the impression")
	}
}

// cancelSensitiveLog refuses writes once the context it is handed carries
// a cancellation, the way a real store client would.
type cancelSensitiveLog struct {
	*store.MemoryLog
}

func (l *cancelSensitiveLog) AppendImpression(ctx context.Context, imp *core.Impression) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.MemoryLog.AppendImpression(ctx, imp)
}

func TestRecommend_ImpressionSurvivesCancelledRequest(t *testing.T) {
	e, _ := testEngine()
	mem := store.NewMemoryLog()
	e.Log = &cancelSensitiveLog{MemoryLog: mem}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the client is already gone

	result, err := e.Recommend(ctx, &Request{UserID: "user-1", Type: core.RecPopular, Now: testNow})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("no recommendations served")
	}

	imps, err := mem.ListImpressions(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(imps) != 1 {
		t.Fatalf("got %d impressions, the write must outlive the request context", len(imps))
	}
}

func TestRecommend_SuppressesInteractedWithoutTracker(t *testing.T) {
	e, log := testEngine()
	err := log.Append(context.Background(), &core.Interaction{
		ID: "in-1", UserID: "user-1", EventID: "pop-0",
		Type: core.InteractionClick, Timestamp: testNow.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := e.Recommend(context.Background(), &Request{UserID: "user-1", Type: core.RecPopular, Now: testNow})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) != 4 {
		t.Fatalf("got %v events, want the 4 not yet interacted with", len(result.Recommendations))
	}
	for _, rec := range result.Recommendations {
		if rec.Event.ID == "pop-0" {
			t.Error("interacted event served again")
		}
	}

	// Anonymous requests have no history to suppress against.
	result, err = e.Recommend(context.Background(), &Request{Type: core.RecPopular, Now: testNow})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) != 5 {
		t.Errorf("got %v events for the anonymous request, want all 5", len(result.Recommendations))
	}
}

func TestRecommend_PopularFailureIsFatal(t *testing.T) {
	e, _ := testEngine()
	e.Popular = &stubSource{
		name: "recall.popular",
		err:  core.NewDomainError(core.ModuleRecall, core.ErrorCodeUpstreamUnavailable, "recall: store down"),
	}

	_, err := e.Recommend(context.Background(), &Request{Type: core.RecPersonalized, Now: testNow})
	if !core.IsUpstreamUnavailable(err) {
		t.Errorf("terminal fallback failure: got %v, want UPSTREAM_UNAVAILABLE", err)
	}
}

func TestRecommend_HybridMergesBothSources(t *testing.T) {
	e, log := testEngine()
	e.Preference = &stubSource{name: "recall.preference", items: stubItems("pref", 10, 24*time.Hour)}
	e.Content = &stubSource{name: "recall.content", items: stubItems("cont", 10, 24*time.Hour)}

	result, err := e.Recommend(context.Background(), &Request{
		UserID: "user-1",
		Type:   core.RecHybrid,
		Limit:  10,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.RecType != core.RecHybrid {
		t.Fatalf("got type %q, want %q", result.RecType, core.RecHybrid)
	}

	sources := map[string]int{}
	for _, rec := range result.Recommendations {
		switch rec.Event.ID[:4] {
		case "pref":
			sources["pref"]++
		case "cont":
			sources["cont"]++
		}
	}
	if sources["pref"] == 0 || sources["cont"] == 0 {
		t.Errorf("hybrid result drew from one source only: %v", sources)
	}

	imps, _ := log.ListImpressions(context.Background(), time.Time{})
	if len(imps) != 1 || imps[0].RecType != core.RecHybrid {
		t.Errorf("hybrid impression not logged correctly: %+v", imps)
	}
}

func TestRecommend_FailingRetrieverTreatedAsEmpty(t *testing.T) {
	e, _ := testEngine()
	e.Preference = &stubSource{
		name: "recall.preference",
		err:  core.NewDomainError(core.ModuleRecall, core.ErrorCodeUpstreamUnavailable, "recall: index down"),
	}

	result, err := e.Recommend(context.Background(), &Request{
		UserID: "user-1",
		Type:   core.RecPersonalized,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("non-terminal retriever failure must fall back, got %v", err)
	}
	if result.RecType != core.RecPopular {
		t.Errorf("got type %q, want fallback %q", result.RecType, core.RecPopular)
	}
}

func TestRecordInteraction_Validates(t *testing.T) {
	e, log := testEngine()

	err := e.RecordInteraction(context.Background(), &core.Interaction{
		UserID: "user-1", EventID: "ev-1", Type: core.InteractionType("me_gusta"),
	})
	if !core.IsInvalidRequest(err) {
		t.Errorf("unknown type: got %v, want INVALID_REQUEST", err)
	}

	err = e.RecordInteraction(context.Background(), &core.Interaction{
		UserID: "user-1", EventID: "ev-1", Type: core.InteractionSave,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := log.ListForUser(context.Background(), "user-1", time.Time{})
	if len(got) != 1 || got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Errorf("interaction not normalized on append: %+v", got)
	}
}
