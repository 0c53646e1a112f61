package core

import (
	"context"
	"time"
)

// EventFilter narrows catalog reads. Zero values mean "no constraint".
type EventFilter struct {
	Categories []string // case-insensitive match on the primary category
	Barrio     string
	PriceMax   *float64 // keeps free events regardless
	FreeOnly   bool
	Tags       []string // at least one tag must match
	From       time.Time
	To         time.Time
	Limit      int
}

// EventStore is the read-only catalog contract. Implementations must support
// concurrent reads; batch jobs rely on ListAll being a consistent snapshot.
type EventStore interface {
	// ListUpcoming returns events with a start time at or after `from`,
	// narrowed by filter, ordered by soonest start then ID.
	ListUpcoming(ctx context.Context, from time.Time, filter EventFilter) ([]*Event, error)

	// GetByID returns the event or a NOT_FOUND DomainError.
	GetByID(ctx context.Context, id string) (*Event, error)

	// ListAll returns the whole catalog, ordered by ID.
	ListAll(ctx context.Context) ([]*Event, error)
}

// InteractionStore is the append-only interaction and impression log.
// Appends must not block concurrent reads (log semantics, no
// read-modify-write).
type InteractionStore interface {
	Append(ctx context.Context, in *Interaction) error

	// ListForUser returns a user's interactions since the given time,
	// newest first.
	ListForUser(ctx context.Context, userID string, since time.Time) ([]*Interaction, error)

	// ListSince returns all interactions since the given time.
	ListSince(ctx context.Context, since time.Time) ([]*Interaction, error)

	AppendImpression(ctx context.Context, imp *Impression) error

	// ListImpressions returns impressions since the given time, oldest
	// first. A zero `since` returns the full history.
	ListImpressions(ctx context.Context, since time.Time) ([]*Impression, error)
}

// PreferenceStore reads declared user preferences. A user without stored
// preferences yields (nil, nil), not an error.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
}

// Store is a minimal byte-oriented key-value contract (memory, redis, ...).
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// KeyValueStore extends Store with the sorted-set operations the popularity
// cache relies on. ZRange returns members by descending score.
type KeyValueStore interface {
	Store
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key string, member string) (float64, error)
}
