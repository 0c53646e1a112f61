package store

import (
	"context"
	"testing"
	"time"

	"github.com/bahoy/recs/core"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func fptr(f float64) *float64 { return &f }

func catalogFixture() *MemoryCatalog {
	return NewMemoryCatalog(
		&core.Event{
			ID: "teatro-1", Category: "Teatro", Barrio: "Palermo",
			PriceMin: fptr(3000), StartsAt: testNow.Add(48 * time.Hour),
		},
		&core.Event{
			ID: "teatro-2", Category: "teatro", Barrio: "Caballito",
			IsFree: true, StartsAt: testNow.Add(24 * time.Hour),
			Tags: []string{"familiar"},
		},
		&core.Event{
			ID: "musica-1", Category: "Música", Barrio: "Palermo",
			PriceMin: fptr(9000), StartsAt: testNow.Add(24 * time.Hour),
		},
		&core.Event{
			ID: "pasado-1", Category: "Teatro", Barrio: "Palermo",
			StartsAt: testNow.Add(-24 * time.Hour),
		},
	)
}

func TestMemoryCatalog_ListUpcoming(t *testing.T) {
	c := catalogFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		filter core.EventFilter
		want   []string
	}{
		{
			name: "no filter, soonest first with ID tiebreak",
			want: []string{"musica-1", "teatro-2", "teatro-1"},
		},
		{
			name:   "category is case-insensitive",
			filter: core.EventFilter{Categories: []string{"TEATRO"}},
			want:   []string{"teatro-2", "teatro-1"},
		},
		{
			name:   "barrio",
			filter: core.EventFilter{Barrio: "palermo"},
			want:   []string{"musica-1", "teatro-1"},
		},
		{
			name:   "free only",
			filter: core.EventFilter{FreeOnly: true},
			want:   []string{"teatro-2"},
		},
		{
			name:   "price cap keeps free events",
			filter: core.EventFilter{PriceMax: fptr(5000)},
			want:   []string{"teatro-2", "teatro-1"},
		},
		{
			name:   "tags match any",
			filter: core.EventFilter{Tags: []string{"familiar", "aire libre"}},
			want:   []string{"teatro-2"},
		},
		{
			name:   "to bound",
			filter: core.EventFilter{To: testNow.Add(36 * time.Hour)},
			want:   []string{"musica-1", "teatro-2"},
		},
		{
			name:   "limit truncates after ordering",
			filter: core.EventFilter{Limit: 1},
			want:   []string{"musica-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ListUpcoming(ctx, testNow, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMemoryCatalog_GetByID(t *testing.T) {
	c := catalogFixture()

	ev, err := c.GetByID(context.Background(), "teatro-1")
	if err != nil || ev.ID != "teatro-1" {
		t.Fatalf("GetByID = %v, %v", ev, err)
	}
	_, err = c.GetByID(context.Background(), "fantasma")
	if !core.IsNotFound(err) {
		t.Errorf("missing event: got %v, want NOT_FOUND", err)
	}
}

func TestMemoryLog_Ordering(t *testing.T) {
	l := NewMemoryLog()
	ctx := context.Background()

	for i, ts := range []time.Time{
		testNow.Add(-3 * time.Hour),
		testNow.Add(-1 * time.Hour),
		testNow.Add(-2 * time.Hour),
	} {
		err := l.Append(ctx, &core.Interaction{
			ID: string(rune('a' + i)), UserID: "u", EventID: "ev",
			Type: core.InteractionView, Timestamp: ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.ListForUser(ctx, "u", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d interactions, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("ListForUser not newest-first at %d", i)
		}
	}

	recent, err := l.ListSince(ctx, testNow.Add(-90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Errorf("ListSince got %d, want 1", len(recent))
	}
}

func TestMemoryLog_Impressions(t *testing.T) {
	l := NewMemoryLog()
	ctx := context.Background()

	for i, ts := range []time.Time{
		testNow.Add(-2 * time.Hour),
		testNow.Add(-1 * time.Hour),
	} {
		err := l.AppendImpression(ctx, &core.Impression{
			ID: string(rune('a' + i)), UserID: "u",
			RecType: core.RecPopular, EventIDs: []string{"ev"},
			Timestamp: ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := l.ListImpressions(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("zero since must return the full history, got %d", len(all))
	}
	windowed, err := l.ListImpressions(ctx, testNow.Add(-90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 1 {
		t.Errorf("windowed read got %d, want 1", len(windowed))
	}
}

func TestMemoryPreferences_MergeOnSet(t *testing.T) {
	p := NewMemoryPreferences()
	ctx := context.Background()

	got, err := p.GetPreferences(ctx, "u")
	if err != nil || got != nil {
		t.Fatalf("unknown user: got %v, %v, want nil, nil", got, err)
	}

	if err := p.SetPreferences(ctx, "u", &core.Preferences{
		FavoriteCategories: []string{"Teatro"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetPreferences(ctx, "u", &core.Preferences{
		FavoriteCategories: []string{"teatro", "Música"},
		FavoriteBarrios:    []string{"Palermo"},
	}); err != nil {
		t.Fatal(err)
	}

	got, err = p.GetPreferences(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.FavoriteCategories) != 2 {
		t.Errorf("categories = %v, want case-insensitive merge of Teatro and Música", got.FavoriteCategories)
	}
	if len(got.FavoriteBarrios) != 1 {
		t.Errorf("barrios = %v, want [Palermo]", got.FavoriteBarrios)
	}
}
