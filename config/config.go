package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bahoy/recs/core"
	"github.com/bahoy/recs/recall"
)

// Config is the full engine configuration. Every field has a working zero
// value, so an empty file (or no file at all) yields the defaults the
// components resolve on their own.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`

	// WindowDays is the trailing window for interaction history and
	// popularity signal.
	WindowDays int `yaml:"window_days"`

	// MaxPerCategory caps same-category events in personalized results.
	MaxPerCategory int `yaml:"max_per_category"`

	PreferenceWeights recall.PreferenceWeights `yaml:"preference_weights"`
	PopularityWeights core.PopularityWeights   `yaml:"popularity_weights"`

	// PopularityCacheKey is the sorted-set key holding the precomputed
	// popularity ranking.
	PopularityCacheKey string `yaml:"popularity_cache_key"`

	Bias    BiasConfig    `yaml:"bias"`
	Metrics MetricsConfig `yaml:"metrics"`

	Redis RedisConfig `yaml:"redis"`

	// SceneRules are named CEL keep rules applied per scene, e.g.
	//
	//	scene_rules:
	//	  familiar: '"familiar" in event.tags || event.is_free'
	//	  budget:   'event.is_free || event.price_min < 2000.0'
	//
	// A rule that does not compile fails Load, not the request path.
	SceneRules map[string]string `yaml:"scene_rules"`
}

type EmbeddingConfig struct {
	Dimension       int           `yaml:"dimension"`
	SimilarityFloor float64       `yaml:"similarity_floor"`
	Collection      string        `yaml:"collection"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
}

type BiasConfig struct {
	// Thresholds overrides the alert threshold per dimension name.
	Thresholds           map[string]float64 `yaml:"thresholds"`
	BubbleMinImpressions int                `yaml:"bubble_min_impressions"`
}

type MetricsConfig struct {
	PrecisionK int `yaml:"precision_k"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML config bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration every component would resolve to on
// its own.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = core.DefaultEmbeddingDimension
	}
	if c.Embedding.Collection == "" {
		c.Embedding.Collection = "events"
	}
	if c.Embedding.SearchTimeout <= 0 {
		c.Embedding.SearchTimeout = core.DefaultVectorTimeout
	}
	if c.WindowDays <= 0 {
		c.WindowDays = core.DefaultWindowDays
	}
	if c.MaxPerCategory <= 0 {
		c.MaxPerCategory = core.DefaultMaxPerCategory
	}
	if (c.PreferenceWeights == recall.PreferenceWeights{}) {
		c.PreferenceWeights = recall.DefaultPreferenceWeights()
	}
	if (c.PopularityWeights == core.PopularityWeights{}) {
		c.PopularityWeights = core.DefaultPopularityWeights()
	}
	if c.PopularityCacheKey == "" {
		c.PopularityCacheKey = "popular:events"
	}
	if c.Bias.BubbleMinImpressions <= 0 {
		c.Bias.BubbleMinImpressions = core.DefaultBubbleMinImpressions
	}
	if c.Metrics.PrecisionK <= 0 {
		c.Metrics.PrecisionK = core.DefaultPrecisionK
	}
}
