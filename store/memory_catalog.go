package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bahoy/recs/core"
)

// MemoryCatalog implements core.EventStore over an in-process slice. It
// serves tests, the examples and small deployments; the contract it honors
// (filter semantics, start-then-ID ordering) is the same one a SQL-backed
// catalog would.
type MemoryCatalog struct {
	mu     sync.RWMutex
	events map[string]*core.Event
}

func NewMemoryCatalog(events ...*core.Event) *MemoryCatalog {
	mc := &MemoryCatalog{events: make(map[string]*core.Event, len(events))}
	for _, ev := range events {
		if ev != nil && ev.ID != "" {
			mc.events[ev.ID] = ev
		}
	}
	return mc
}

// Put inserts or replaces an event.
func (c *MemoryCatalog) Put(ev *core.Event) {
	if ev == nil || ev.ID == "" {
		return
	}
	c.mu.Lock()
	c.events[ev.ID] = ev
	c.mu.Unlock()
}

func (c *MemoryCatalog) ListUpcoming(ctx context.Context, from time.Time, filter core.EventFilter) ([]*core.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Event, 0, len(c.events))
	for _, ev := range c.events {
		if !ev.StartsAt.Before(from) && matchesFilter(ev, filter) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (c *MemoryCatalog) GetByID(ctx context.Context, id string) (*core.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "event not found: "+id)
	}
	return ev, nil
}

func (c *MemoryCatalog) ListAll(ctx context.Context) ([]*core.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesFilter(ev *core.Event, f core.EventFilter) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if strings.EqualFold(ev.Category, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Barrio != "" && !strings.EqualFold(ev.Barrio, f.Barrio) {
		return false
	}
	if f.FreeOnly && !ev.IsFree {
		return false
	}
	if f.PriceMax != nil && !ev.IsFree {
		if ev.PriceMin != nil && *ev.PriceMin > *f.PriceMax {
			return false
		}
	}
	if len(f.Tags) > 0 {
		found := false
		for _, t := range f.Tags {
			if ev.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && ev.StartsAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ev.StartsAt.After(f.To) {
		return false
	}
	return true
}

// MemoryLog implements core.InteractionStore as two append-only slices
// guarded by one mutex. Reads return copies of the slice headers, never
// aliases into the growing log.
type MemoryLog struct {
	mu           sync.RWMutex
	interactions []*core.Interaction
	impressions  []*core.Impression
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, in *core.Interaction) error {
	if in == nil {
		return nil
	}
	l.mu.Lock()
	l.interactions = append(l.interactions, in)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLog) ListForUser(ctx context.Context, userID string, since time.Time) ([]*core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*core.Interaction, 0, 32)
	for _, in := range l.interactions {
		if in.UserID == userID && !in.Timestamp.Before(since) {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (l *MemoryLog) ListSince(ctx context.Context, since time.Time) ([]*core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*core.Interaction, 0, len(l.interactions))
	for _, in := range l.interactions {
		if !in.Timestamp.Before(since) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (l *MemoryLog) AppendImpression(ctx context.Context, imp *core.Impression) error {
	if imp == nil {
		return nil
	}
	l.mu.Lock()
	l.impressions = append(l.impressions, imp)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLog) ListImpressions(ctx context.Context, since time.Time) ([]*core.Impression, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*core.Impression, 0, len(l.impressions))
	for _, imp := range l.impressions {
		if since.IsZero() || !imp.Timestamp.Before(since) {
			out = append(out, imp)
		}
	}
	return out, nil
}

// MemoryPreferences implements core.PreferenceStore. Set merges into the
// stored profile, it never replaces it.
type MemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]*core.Preferences
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{prefs: make(map[string]*core.Preferences)}
}

func (p *MemoryPreferences) GetPreferences(ctx context.Context, userID string) (*core.Preferences, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored, ok := p.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (p *MemoryPreferences) SetPreferences(ctx context.Context, userID string, incoming *core.Preferences) error {
	if incoming == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, ok := p.prefs[userID]
	if !ok {
		cp := *incoming
		p.prefs[userID] = &cp
		return nil
	}
	stored.Merge(incoming)
	return nil
}

var (
	_ core.EventStore       = (*MemoryCatalog)(nil)
	_ core.InteractionStore = (*MemoryLog)(nil)
	_ core.PreferenceStore  = (*MemoryPreferences)(nil)
)
