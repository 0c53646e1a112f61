package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bahoy/recs/bias"
	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/engine"
	"github.com/bahoy/recs/filter"
	"github.com/bahoy/recs/metrics"
	"github.com/bahoy/recs/recall"
	"github.com/bahoy/recs/rerank"
	"github.com/bahoy/recs/store"
	"github.com/bahoy/recs/vector"
)

// Dependencies are the backing services Build wires the configuration
// around. Events and Interactions are required; the rest degrade: no
// Vectors means no content/similar retrieval, no Cache means popularity is
// recomputed from the interaction log on every request and exposure
// suppression falls back to replaying that log.
type Dependencies struct {
	Events       core.EventStore
	Interactions core.InteractionStore
	Preferences  core.PreferenceStore
	Cache        core.KeyValueStore
	Vectors      core.VectorService

	Logger *zerolog.Logger
}

// System is the fully wired recommendation stack.
type System struct {
	Engine  *engine.Engine
	Bias    *bias.Analyzer
	Metrics *metrics.Engine
}

// Build assembles the engine, bias analyzer and metrics engine from one
// configuration. Scene rules compile here, so a bad expression fails the
// boot, never a request.
func Build(cfg *Config, deps Dependencies) (*System, error) {
	if cfg == nil {
		cfg = Default()
	}
	if deps.Events == nil || deps.Interactions == nil {
		return nil, fmt.Errorf("config: event and interaction stores are required")
	}

	var index recall.VectorIndex
	if deps.Vectors != nil {
		adapter := vector.NewIndexAdapter(deps.Vectors, cfg.Embedding.Collection)
		adapter.Dimension = cfg.Embedding.Dimension
		adapter.Floor = cfg.Embedding.SimilarityFloor
		adapter.Timeout = cfg.Embedding.SearchTimeout
		index = adapter
	}

	scenes := make(map[string]filter.Filter, len(cfg.SceneRules))
	for name, rule := range cfg.SceneRules {
		f, err := filter.NewExpr(rule)
		if err != nil {
			return nil, fmt.Errorf("config: scene %q: %w", name, err)
		}
		scenes[name] = f
	}

	eng := &engine.Engine{
		Preference: &recall.PreferenceRecall{
			Events:  deps.Events,
			Weights: cfg.PreferenceWeights,
		},
		Popular: &recall.PopularRecall{
			Events:       deps.Events,
			Interactions: deps.Interactions,
			Cache:        deps.Cache,
			CacheKey:     cfg.PopularityCacheKey,
			Weights:      cfg.PopularityWeights,
			WindowDays:   cfg.WindowDays,
		},
		Contextual: &recall.ContextualRecall{
			Events: deps.Events,
		},
		Preferences:    deps.Preferences,
		Log:            deps.Interactions,
		Merger:         &rerank.Hybrid{},
		Scenes:         scenes,
		MaxPerCategory: cfg.MaxPerCategory,
		Logger:         deps.Logger,
	}
	if deps.Cache != nil {
		eng.Exposure = &store.BloomExposure{Store: deps.Cache}
	}
	if index != nil {
		eng.Content = &recall.ContentRecall{
			Events:       deps.Events,
			Interactions: deps.Interactions,
			Index:        index,
			WindowDays:   cfg.WindowDays,
			Dimension:    cfg.Embedding.Dimension,
		}
		eng.Similar = &recall.SimilarRecall{
			Events:    deps.Events,
			Index:     index,
			Dimension: cfg.Embedding.Dimension,
		}
	}

	return &System{
		Engine: eng,
		Bias: &bias.Analyzer{
			Events:               deps.Events,
			Log:                  deps.Interactions,
			Thresholds:           cfg.Bias.Thresholds,
			BubbleMinImpressions: cfg.Bias.BubbleMinImpressions,
		},
		Metrics: &metrics.Engine{
			Events: deps.Events,
			Log:    deps.Interactions,
			K:      cfg.Metrics.PrecisionK,
		},
	}, nil
}
