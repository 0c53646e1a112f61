package core

import (
	"strings"
	"time"
)

// Event is the read-only catalog unit the engine ranks. Events are owned by
// the ingestion pipeline; the engine never mutates them.
//
// Embedding is present only after NLP enrichment. EmbeddingModel names the
// model that produced the vector, so mixed-version catalogs degrade
// gracefully: events without a vector simply never surface in content-based
// or similar-to-event output.
type Event struct {
	ID            string
	Title         string
	Description   string
	Category      string
	Subcategories []string
	Tags          []string

	VenueName string
	Barrio    string

	StartsAt time.Time
	EndsAt   time.Time

	PriceMin *float64
	PriceMax *float64
	IsFree   bool

	Embedding      []float64
	EmbeddingModel string

	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasEmbedding reports whether the event carries a vector of the given
// dimension. dim <= 0 accepts any non-empty vector.
func (e *Event) HasEmbedding(dim int) bool {
	if e == nil || len(e.Embedding) == 0 {
		return false
	}
	return dim <= 0 || len(e.Embedding) == dim
}

// Upcoming reports whether the event has not yet started at the given time.
func (e *Event) Upcoming(now time.Time) bool {
	return e != nil && e.StartsAt.After(now)
}

// HasTag does a case-insensitive membership check over the event tags.
func (e *Event) HasTag(tag string) bool {
	if e == nil {
		return false
	}
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// PriceRange is a user's declared budget. Zero Min with a Max means
// "anything up to Max".
type PriceRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Preferences is the declared side of a user profile. Every field is
// optional and fields are mutually independent; an empty struct means the
// user never told us anything.
type Preferences struct {
	FavoriteCategories []string    `yaml:"favorite_categories" json:"favorite_categories"`
	FavoriteBarrios    []string    `yaml:"favorite_barrios" json:"favorite_barrios"`
	PriceRange         *PriceRange `yaml:"price_range" json:"price_range"`
	PreferredTimes     []string    `yaml:"preferred_times" json:"preferred_times"`
	InterestTags       []string    `yaml:"interest_tags" json:"interest_tags"`
}

// IsEmpty reports whether no preference dimension has been declared.
func (p *Preferences) IsEmpty() bool {
	if p == nil {
		return true
	}
	return len(p.FavoriteCategories) == 0 &&
		len(p.FavoriteBarrios) == 0 &&
		p.PriceRange == nil &&
		len(p.PreferredTimes) == 0 &&
		len(p.InterestTags) == 0
}

// Merge folds the non-empty fields of incoming into p. Updates merge, they
// never replace: a user who only re-declares categories keeps their barrios.
func (p *Preferences) Merge(incoming *Preferences) {
	if p == nil || incoming == nil {
		return
	}
	if len(incoming.FavoriteCategories) > 0 {
		p.FavoriteCategories = mergeUnique(p.FavoriteCategories, incoming.FavoriteCategories)
	}
	if len(incoming.FavoriteBarrios) > 0 {
		p.FavoriteBarrios = mergeUnique(p.FavoriteBarrios, incoming.FavoriteBarrios)
	}
	if incoming.PriceRange != nil {
		pr := *incoming.PriceRange
		p.PriceRange = &pr
	}
	if len(incoming.PreferredTimes) > 0 {
		p.PreferredTimes = mergeUnique(p.PreferredTimes, incoming.PreferredTimes)
	}
	if len(incoming.InterestTags) > 0 {
		p.InterestTags = mergeUnique(p.InterestTags, incoming.InterestTags)
	}
}

func mergeUnique(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, s := range existing {
		k := strings.ToLower(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	for _, s := range incoming {
		k := strings.ToLower(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}
