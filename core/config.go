package core

import "time"

// Engine-wide defaults. Components resolve zero-valued settings against
// these where they are used, so a zero struct always behaves.
const (
	// DefaultEmbeddingDimension is the globally agreed embedding size
	// (all-MiniLM-L6-v2 and similar light models).
	DefaultEmbeddingDimension = 384

	// DefaultSimilarityFloor: candidates at or below it are discarded.
	DefaultSimilarityFloor = 0.0

	// Result size bounds for a single request.
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50

	// DefaultWindowDays is the trailing window for interaction history,
	// popularity signal and batch reports.
	DefaultWindowDays = 30

	// DefaultVectorTimeout bounds a nearest-neighbor lookup; on expiry the
	// retriever is treated as empty and fallback fires.
	DefaultVectorTimeout = 2 * time.Second

	// DefaultMaxPerCategory caps same-category events in personalized
	// results.
	DefaultMaxPerCategory = 3

	// DefaultBiasThreshold flags a bias dimension as alerting.
	DefaultBiasThreshold = 0.5

	// DefaultBubbleMinImpressions: users below it are skipped by the
	// filter-bubble dimension.
	DefaultBubbleMinImpressions = 3

	// DefaultPrecisionK is the cut for precision@k.
	DefaultPrecisionK = 10
)

// PopularityWeights weighs interaction types in the popularity score.
type PopularityWeights struct {
	View  float64 `yaml:"view"`
	Click float64 `yaml:"click"`
	Save  float64 `yaml:"save"`
	Share float64 `yaml:"share"`
}

// DefaultPopularityWeights returns the standard weighting.
func DefaultPopularityWeights() PopularityWeights {
	return PopularityWeights{View: 1, Click: 2, Save: 3, Share: 3}
}

// Weight returns the weight for an interaction type, 0 for unknown types.
func (w PopularityWeights) Weight(t InteractionType) float64 {
	switch t {
	case InteractionView:
		return w.View
	case InteractionClick:
		return w.Click
	case InteractionSave:
		return w.Save
	case InteractionShare:
		return w.Share
	}
	return 0
}
