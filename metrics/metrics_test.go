package metrics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/store"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func TestCompute_EmptyWindow(t *testing.T) {
	e := &Engine{
		Events: store.NewMemoryCatalog(),
		Log:    store.NewMemoryLog(),
		Clock:  fixedClock,
	}

	report, err := e.Compute(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if report.CTR != 0 || report.SaveRate != 0 || report.Diversity != 0 ||
		report.Coverage != 0 || report.PrecisionAtK != 0 {
		t.Errorf("empty window must be all-zero: %+v", report)
	}
	if report.Totals.Impressions != 0 || report.Totals.Interactions != 0 {
		t.Errorf("empty window has nonzero totals: %+v", report.Totals)
	}
}

// 100 impressions of 10 slots, 120 clicks and 40 saves in the window.
func TestCompute_RatesFromSlots(t *testing.T) {
	catalog := store.NewMemoryCatalog()
	for i := 0; i < 50; i++ {
		catalog.Put(&core.Event{
			ID: fmt.Sprintf("ev-%02d", i), Category: fmt.Sprintf("cat-%d", i%5),
		})
	}

	log := store.NewMemoryLog()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		ids := make([]string, 0, 10)
		for j := 0; j < 10; j++ {
			ids = append(ids, fmt.Sprintf("ev-%02d", (i+j)%50))
		}
		err := log.AppendImpression(ctx, &core.Impression{
			ID: fmt.Sprintf("imp-%d", i), UserID: fmt.Sprintf("user-%d", i%10),
			RecType: core.RecPersonalized, EventIDs: ids,
			Timestamp: testNow.Add(-time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 120; i++ {
		err := log.Append(ctx, &core.Interaction{
			UserID: fmt.Sprintf("user-%d", i%10), EventID: fmt.Sprintf("ev-%02d", i%50),
			Type: core.InteractionClick, Timestamp: testNow.Add(-time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 40; i++ {
		err := log.Append(ctx, &core.Interaction{
			UserID: fmt.Sprintf("user-%d", i%10), EventID: fmt.Sprintf("ev-%02d", i%50),
			Type: core.InteractionSave, Timestamp: testNow.Add(-time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	e := &Engine{Events: catalog, Log: log, Clock: fixedClock}
	report, err := e.Compute(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}

	// 1000 slots shown.
	if math.Abs(report.CTR-0.12) > 1e-9 {
		t.Errorf("CTR = %v, want 0.12", report.CTR)
	}
	if math.Abs(report.SaveRate-0.04) > 1e-9 {
		t.Errorf("SaveRate = %v, want 0.04", report.SaveRate)
	}
	// Every impression shows 10 events spanning 5 categories.
	if math.Abs(report.Diversity-0.5) > 1e-9 {
		t.Errorf("Diversity = %v, want 0.5", report.Diversity)
	}
	// All 50 catalog events were shown at least once.
	if math.Abs(report.Coverage-1) > 1e-9 {
		t.Errorf("Coverage = %v, want 1", report.Coverage)
	}
	if report.Totals.Impressions != 100 || report.Totals.Interactions != 160 {
		t.Errorf("totals = %+v", report.Totals)
	}
	if report.Totals.InteractionsByType[core.InteractionClick] != 120 {
		t.Errorf("clicks = %d, want 120", report.Totals.InteractionsByType[core.InteractionClick])
	}
	if report.Totals.ImpressionsByType[core.RecPersonalized] != 100 {
		t.Errorf("impressions by type = %+v", report.Totals.ImpressionsByType)
	}
}

func TestCompute_CoverageReadsFullHistory(t *testing.T) {
	catalog := store.NewMemoryCatalog(
		&core.Event{ID: "a", Category: "Teatro"},
		&core.Event{ID: "b", Category: "Música"},
		&core.Event{ID: "c", Category: "Cine"},
		&core.Event{ID: "d", Category: "Feria"},
	)
	log := store.NewMemoryLog()
	ctx := context.Background()

	// Shown long before the window: counts for coverage, not for the rates.
	err := log.AppendImpression(ctx, &core.Impression{
		ID: "vieja", UserID: "u", RecType: core.RecPopular,
		EventIDs: []string{"a", "b"}, Timestamp: testNow.AddDate(0, 0, -90),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = log.AppendImpression(ctx, &core.Impression{
		ID: "reciente", UserID: "u", RecType: core.RecPopular,
		EventIDs: []string{"c"}, Timestamp: testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	e := &Engine{Events: catalog, Log: log, Clock: fixedClock}
	report, err := e.Compute(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(report.Coverage-0.75) > 1e-9 {
		t.Errorf("Coverage = %v, want 0.75 (3 of 4 ever shown)", report.Coverage)
	}
	if report.Totals.Impressions != 1 {
		t.Errorf("windowed impressions = %d, want only the recent one", report.Totals.Impressions)
	}
}

func TestDiversity_SkipsUncategorizableImpressions(t *testing.T) {
	events := map[string]*core.Event{
		"a": {ID: "a", Category: "Teatro"},
		"b": {ID: "b", Category: "Música"},
		"s": {ID: "s"}, // scraped, not yet categorized
	}
	impressions := []*core.Impression{
		{EventIDs: []string{"a", "b"}},
		// Only deleted or uncategorized events: says nothing about
		// diversity, must not drag the average down.
		{EventIDs: []string{"ev-borrado", "s"}},
	}

	got := diversity(impressions, events)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("diversity = %v, want 1.0 with the uncategorizable impression skipped", got)
	}
}

func TestPrecisionAtK(t *testing.T) {
	impressions := []*core.Impression{
		{UserID: "u1", EventIDs: []string{"a", "b", "c"}},
		{UserID: "u2", EventIDs: []string{"a", "b", "c"}},
	}
	interactions := []*core.Interaction{
		{UserID: "u1", EventID: "a", Type: core.InteractionClick},
		{UserID: "u1", EventID: "b", Type: core.InteractionSave},
		{UserID: "u1", EventID: "c", Type: core.InteractionView}, // not positive
		{UserID: "u2", EventID: "a", Type: core.InteractionShare},
		{UserID: "u2", EventID: "z", Type: core.InteractionClick}, // not shown
	}

	// u1: 2 positives in top 10 -> 0.2; u2: 1 -> 0.1; average 0.15.
	got := precisionAtK(impressions, interactions, 10)
	if math.Abs(got-0.15) > 1e-9 {
		t.Errorf("precisionAtK = %v, want 0.15", got)
	}

	// The cut discards positives past position k.
	deep := []*core.Impression{{UserID: "u1", EventIDs: []string{"x", "a"}}}
	got = precisionAtK(deep, interactions, 1)
	if got != 0 {
		t.Errorf("precision@1 = %v, want 0 (positive sits at position 2)", got)
	}
}
