// Package bridge synthesizes minimal placeholder text for gaps the external
// token-budget filter cut out of a conversation: candidate identification,
// strategy-parameterized generation, and orchestration into a BridgingResult.
package bridge

// Config holds the tuning knobs for the bridge builder.
type Config struct {
	// DefaultStrategy is used when the caller passes an empty strategy.
	DefaultStrategy Strategy `yaml:"default_strategy"`

	// MaxBridgeTokens caps any single bridge's token cost, on top of the
	// per-strategy caps.
	MaxBridgeTokens int `yaml:"max_bridge_tokens"`

	// MinDependencyScore rejects gap candidates scoring below it.
	MinDependencyScore float64 `yaml:"min_dependency_score"`

	// ConfidenceThreshold discards generated bridges below it.
	ConfidenceThreshold float64 `yaml:"bridge_confidence_threshold"`

	// MinGapSize skips gaps with fewer dropped items.
	MinGapSize int `yaml:"min_gap_size"`

	// MaxGapSize skips gaps with more dropped items; a gap that large means
	// the caller should retain more content, not paper over it.
	MaxGapSize int `yaml:"max_gap_size"`

	// MaxBridges caps the bridges emitted per conversation, on top of the
	// per-strategy candidate caps.
	MaxBridges int `yaml:"max_bridges_per_conversation"`

	// SummarizationEnabled lets the aggressive strategy build keyword
	// summaries for fallback bridges.
	SummarizationEnabled *bool `yaml:"summarization_enabled"`
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg Config) withDefaults() Config {
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = StrategyModerate
	}
	if cfg.MaxBridgeTokens == 0 {
		cfg.MaxBridgeTokens = 200
	}
	if cfg.MinDependencyScore == 0 {
		cfg.MinDependencyScore = 0.3
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.5
	}
	if cfg.MinGapSize == 0 {
		cfg.MinGapSize = 2
	}
	if cfg.MaxGapSize == 0 {
		cfg.MaxGapSize = 20
	}
	if cfg.MaxBridges == 0 {
		cfg.MaxBridges = 10
	}
	if cfg.SummarizationEnabled == nil {
		enabled := true
		cfg.SummarizationEnabled = &enabled
	}
	return cfg
}

func (cfg Config) summarization() bool {
	return cfg.SummarizationEnabled != nil && *cfg.SummarizationEnabled
}
