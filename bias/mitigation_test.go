package bias

import (
	"testing"

	"github.com/bahoy/recs/core"
)

func mitItem(id, category, source string) *core.Item {
	return core.NewItem(&core.Event{ID: id, Category: category, Source: source})
}

func mitIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestNonPopularQuota(t *testing.T) {
	counts := map[string]int{"hit-1": 50, "hit-2": 30, "hit-3": 20}
	items := []*core.Item{
		mitItem("hit-1", "Teatro", ""),
		mitItem("hit-2", "Teatro", ""),
		mitItem("hit-3", "Teatro", ""),
		mitItem("nicho-1", "Teatro", ""),
	}

	// 1 of 4 non-popular already satisfies a 20% quota: untouched.
	got := NonPopularQuota(items, counts, 0.20)
	if mitIDs(got)[0] != "hit-1" {
		t.Errorf("satisfied quota must not reorder, got %v", mitIDs(got))
	}

	// A 50% quota is unmet: non-popular events move to the front.
	got = NonPopularQuota(items, counts, 0.50)
	if got[0].ID != "nicho-1" {
		t.Errorf("unmet quota must lead with non-popular events, got %v", mitIDs(got))
	}
	if len(got) != 4 {
		t.Errorf("mitigation dropped items: %v", mitIDs(got))
	}
}

func TestCategorySpread(t *testing.T) {
	items := []*core.Item{
		mitItem("t1", "Teatro", ""),
		mitItem("t2", "Teatro", ""),
		mitItem("t3", "Teatro", ""),
		mitItem("m1", "Música", ""),
	}

	got := CategorySpread(items, 2)
	if got[0].ID != "t1" || got[1].ID != "m1" {
		t.Errorf("got %v, want two distinct categories leading", mitIDs(got))
	}
	if len(got) != 4 {
		t.Errorf("mitigation dropped items: %v", mitIDs(got))
	}
	// Relative order inside the remainder survives.
	if got[2].ID != "t2" || got[3].ID != "t3" {
		t.Errorf("remainder reordered: %v", mitIDs(got))
	}
}

func TestSourceRotation(t *testing.T) {
	items := []*core.Item{
		mitItem("s1", "", "scraper"),
		mitItem("s2", "", "scraper"),
		mitItem("s3", "", "scraper"),
		mitItem("e1", "", "eventbrite"),
	}

	got := SourceRotation(items, 0.50)
	if len(got) != 4 {
		t.Fatalf("mitigation dropped items: %v", mitIDs(got))
	}
	// scraper is capped at 2 of 4; its third entry shifts behind e1.
	want := []string{"s1", "s2", "e1", "s3"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("got %v, want %v", mitIDs(got), want)
		}
	}
}
