package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "HEALTHBOARD_"
	envFileKey = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, an optional YAML file and
// environment variables, lowest precedence first:
//  1. defaults (New)
//  2. file at path, or at $HEALTHBOARD_CONFIG when path is empty
//  3. env (prefix HEALTHBOARD_, e.g. HEALTHBOARD_INTERVAL_SECONDS)
//
// The result is validated before it is returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envFileKey)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// HEALTHBOARD_REQUEST_TIMEOUT_SECONDS -> request_timeout_seconds; the
	// delimiter is "." so underscores survive and match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := *New()
	if k.Exists("targets") {
		// a configured target list replaces the defaults instead of merging into them
		cfg.Targets = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
