package config

import (
	"errors"
	"fmt"

	"github.com/mfaure/ctxweave/internal/bridge"
)

// Validate checks the structural validity of a Config. All problems are
// reported at once via errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateCorrelator(cfg)...)
	errs = append(errs, validateBridge(cfg)...)

	return errors.Join(errs...)
}

func validateCorrelator(cfg *Config) []error {
	var errs []error

	if f := cfg.Correlator.MinConfidence; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("config: correlator.min_confidence %v out of range [0,1]", f))
	}
	if f := cfg.Correlator.StrongThreshold; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("config: correlator.strong_threshold %v out of range [0,1]", f))
	}
	if f := cfg.Correlator.CriticalThreshold; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("config: correlator.critical_threshold %v out of range [0,1]", f))
	}
	if n := cfg.Correlator.ToolChainWindow; n < 0 {
		errs = append(errs, fmt.Errorf("config: correlator.tool_chain_window must not be negative (got %d)", n))
	}
	if min, max := cfg.Correlator.MinClusterSize, cfg.Correlator.MaxClusterSize; min > 0 && max > 0 && min > max {
		errs = append(errs, fmt.Errorf("config: correlator.min_cluster_size %d exceeds max_cluster_size %d", min, max))
	}
	for kind, w := range cfg.Correlator.DependencyWeights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("config: correlator.dependency_weights[%s] must not be negative (got %v)", kind, w))
		}
	}

	return errs
}

func validateBridge(cfg *Config) []error {
	var errs []error

	if s := cfg.Bridge.DefaultStrategy; s != "" {
		if _, err := bridge.ParseStrategy(string(s)); err != nil {
			errs = append(errs, fmt.Errorf("config: bridge.default_strategy: %w", err))
		}
	}
	if f := cfg.Bridge.MinDependencyScore; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("config: bridge.min_dependency_score %v out of range [0,1]", f))
	}
	if f := cfg.Bridge.ConfidenceThreshold; f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("config: bridge.bridge_confidence_threshold %v out of range [0,1]", f))
	}
	if min, max := cfg.Bridge.MinGapSize, cfg.Bridge.MaxGapSize; min > 0 && max > 0 && min > max {
		errs = append(errs, fmt.Errorf("config: bridge.min_gap_size %d exceeds max_gap_size %d", min, max))
	}
	if n := cfg.Bridge.MaxBridgeTokens; n < 0 {
		errs = append(errs, fmt.Errorf("config: bridge.max_bridge_tokens must not be negative (got %d)", n))
	}
	if n := cfg.Bridge.MaxBridges; n < 0 {
		errs = append(errs, fmt.Errorf("config: bridge.max_bridges_per_conversation must not be negative (got %d)", n))
	}

	return errs
}
