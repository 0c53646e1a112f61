package store

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/bahoy/recs/core"
)

// BloomExposure tracks which events each user has already been shown, as a
// per-user bloom filter serialized into the key-value store. Checks are
// probabilistic: "seen" can be a false positive (the event is merely
// suppressed for that user), "not seen" is certain. Much cheaper than
// replaying the interaction log on hot paths.
type BloomExposure struct {
	Store core.Store

	// Capacity and FalsePositiveRate size each per-user filter; zero values
	// mean 10000 events at 1%.
	Capacity          uint
	FalsePositiveRate float64

	// TTLSeconds expires a user's filter; 0 keeps it forever.
	TTLSeconds int

	mu    sync.RWMutex
	cache map[string]*bloom.BloomFilter
}

func exposureKey(userID string) string {
	return "exposure:bloom:" + userID
}

func (b *BloomExposure) params() (uint, float64) {
	capacity := b.Capacity
	if capacity == 0 {
		capacity = 10000
	}
	rate := b.FalsePositiveRate
	if rate <= 0 || rate >= 1 {
		rate = 0.01
	}
	return capacity, rate
}

// Seen reports whether the user was (probably) already shown the event.
// Store errors report "not seen": exposure dedup must never empty a feed.
func (b *BloomExposure) Seen(ctx context.Context, userID, eventID string) bool {
	if b.Store == nil || userID == "" || eventID == "" {
		return false
	}
	bf, err := b.load(ctx, userID)
	if err != nil || bf == nil {
		return false
	}
	return bf.Test([]byte(eventID))
}

// Mark records the events as shown to the user and persists the updated
// filter.
func (b *BloomExposure) Mark(ctx context.Context, userID string, eventIDs []string) error {
	if b.Store == nil || userID == "" || len(eventIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bf, err := b.loadLocked(ctx, userID)
	if err != nil {
		return err
	}
	if bf == nil {
		capacity, rate := b.params()
		bf = bloom.NewWithEstimates(capacity, rate)
	}
	for _, id := range eventIDs {
		bf.Add([]byte(id))
	}

	var buf bytes.Buffer
	if _, err := bf.WriteTo(&buf); err != nil {
		return err
	}
	if err := b.Store.Set(ctx, exposureKey(userID), buf.Bytes(), b.TTLSeconds); err != nil {
		return err
	}
	if b.cache == nil {
		b.cache = make(map[string]*bloom.BloomFilter)
	}
	b.cache[exposureKey(userID)] = bf
	return nil
}

func (b *BloomExposure) load(ctx context.Context, userID string) (*bloom.BloomFilter, error) {
	b.mu.RLock()
	cached := b.cache[exposureKey(userID)]
	b.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadLocked(ctx, userID)
}

// loadLocked reads and deserializes the user's filter, caching it. Returns
// (nil, nil) when the user has none yet.
func (b *BloomExposure) loadLocked(ctx context.Context, userID string) (*bloom.BloomFilter, error) {
	key := exposureKey(userID)
	if cached := b.cache[key]; cached != nil {
		return cached, nil
	}

	data, err := b.Store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrStoreNotFound) {
			return nil, nil
		}
		return nil, err
	}

	capacity, rate := b.params()
	bf := bloom.NewWithEstimates(capacity, rate)
	if _, err := bf.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if b.cache == nil {
		b.cache = make(map[string]*bloom.BloomFilter)
	}
	b.cache[key] = bf
	return bf, nil
}
