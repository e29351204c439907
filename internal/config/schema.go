// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for ctxweave.
package config

import (
	"github.com/mfaure/ctxweave/internal/bridge"
	"github.com/mfaure/ctxweave/internal/correlate"
	"github.com/mfaure/ctxweave/internal/gateway"
	"github.com/mfaure/ctxweave/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Correlator tunes reference detection and clustering.
	Correlator correlate.Config `yaml:"correlator"`

	// Bridge tunes gap scoring and bridge generation.
	Bridge bridge.Config `yaml:"bridge"`

	// Gateway configures the HTTP surface used by the serve command.
	Gateway gateway.Config `yaml:"gateway"`

	// Telemetry configures the optional OTLP trace exporter.
	Telemetry telemetry.Config `yaml:"telemetry"`
}
