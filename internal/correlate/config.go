// Package correlate discovers dependency links across an ordered
// conversation stream: seven heuristic detectors, a confidence filter, and
// connected-components clustering per dependency kind.
package correlate

// Config holds the tuning knobs for the correlator. The detection constants
// are empirically chosen; keep them configurable rather than hard-coded.
type Config struct {
	// MinConfidence drops pooled references below this confidence before
	// clustering.
	MinConfidence float64 `yaml:"min_confidence"`

	// StrongThreshold and CriticalThreshold map detector confidence onto
	// reference strength for the extraction-based detectors.
	StrongThreshold   float64 `yaml:"strong_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`

	// ToolChainWindow is how many items ahead of a tool call to scan for
	// its result.
	ToolChainWindow int `yaml:"tool_chain_window"`

	// MinClusterSize is the minimum member count for a component to become
	// a cluster.
	MinClusterSize int `yaml:"min_cluster_size"`

	// MaxClusterSize discards components larger than this; oversized
	// components (typically concept-continuation fan-out) carry little
	// signal per member.
	MaxClusterSize int `yaml:"max_cluster_size"`

	// DependencyWeights multiplies per-kind contributions in strength
	// scoring. Missing kinds fall back to the defaults.
	DependencyWeights map[DependencyKind]float64 `yaml:"dependency_weights"`
}

// defaultDependencyWeights order kinds by how badly dropping one side hurts.
var defaultDependencyWeights = map[DependencyKind]float64{
	KindToolChain:           1.0,
	KindErrorContext:        0.9,
	KindFile:                0.8,
	KindFunction:            0.7,
	KindVariable:            0.5,
	KindConversationalFlow:  0.4,
	KindConceptContinuation: 0.3,
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg Config) withDefaults() Config {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.3
	}
	if cfg.StrongThreshold == 0 {
		cfg.StrongThreshold = 0.7
	}
	if cfg.CriticalThreshold == 0 {
		cfg.CriticalThreshold = 0.9
	}
	if cfg.ToolChainWindow == 0 {
		cfg.ToolChainWindow = 10
	}
	if cfg.MinClusterSize == 0 {
		cfg.MinClusterSize = 2
	}
	if cfg.MaxClusterSize == 0 {
		cfg.MaxClusterSize = 20
	}
	if cfg.DependencyWeights == nil {
		cfg.DependencyWeights = defaultDependencyWeights
	}
	return cfg
}

// kindWeight returns the configured weight for a kind, falling back to the
// default table, then to a neutral 0.5 for unknown kinds.
func (cfg Config) kindWeight(kind DependencyKind) float64 {
	if w, ok := cfg.DependencyWeights[kind]; ok {
		return w
	}
	if w, ok := defaultDependencyWeights[kind]; ok {
		return w
	}
	return 0.5
}

// strengthFor maps an extraction confidence onto a strength grade using the
// configured thresholds. Used by the file/function/variable detectors; the
// other detectors emit fixed strengths.
func (cfg Config) strengthFor(confidence float64) Strength {
	switch {
	case confidence >= cfg.CriticalThreshold:
		return StrengthCritical
	case confidence >= cfg.StrongThreshold:
		return StrengthStrong
	case confidence >= 0.5:
		return StrengthModerate
	}
	return StrengthWeak
}
