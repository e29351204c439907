package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Deployment configs carry endpoints and bind addresses that differ per
// environment, so values may reference environment variables: ${VAR} must
// resolve, ${VAR:-default} falls back when unset. Expansion happens on the
// raw bytes before YAML parsing, so a variable can hold any fragment, not
// just a scalar.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a ctxweave configuration file: expand environment references,
// then parse the YAML into a Config. Structural checks are a separate step,
// see Validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// expandEnv substitutes every environment reference in the raw bytes. All
// unresolved variables are reported together rather than one per Load call;
// a partially-expanded result is never parsed.
func expandEnv(raw []byte) ([]byte, error) {
	var unresolved []error

	expanded := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		value, ok := resolve(string(subs[1]), subs[2])
		if !ok {
			unresolved = append(unresolved, fmt.Errorf("unresolved variable: %s", subs[1]))
			return match
		}
		return []byte(value)
	})

	if err := errors.Join(unresolved...); err != nil {
		return nil, err
	}
	return expanded, nil
}

// resolve looks a variable up in the environment, falling back to the
// reference's default clause. A nil fallback means no :- clause was written,
// which is distinct from an empty default.
func resolve(name string, fallback []byte) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	if fallback != nil {
		return string(fallback), true
	}
	return "", false
}
