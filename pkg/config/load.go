package config

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// Load builds a config from defaults, an optional YAML file and the
// environment, then validates it. An empty path skips the file.
func Load(path, envPrefix string) (*Config, error) {
	cfg := DefaultConfig(Devnet)

	if v := os.Getenv(envPrefix + EnvEnvironment); v != "" {
		cfg = DefaultConfig(Environment(v))
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config %s: %w", path, err)
		}
		defer f.Close()
		before := cfg.Environment
		if err := DecodeStrict(f, cfg); err != nil {
			return nil, err
		}
		if cfg.Environment != before && cfg.Chain.RPCURL == DefaultConfig(before).Chain.RPCURL {
			cfg.Chain.RPCURL = DefaultConfig(cfg.Environment).Chain.RPCURL
		}
	}

	if err := cfg.ApplyEnv(envPrefix); err != nil {
		return nil, err
	}

	if err := multierr.Combine(cfg.Validate()...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
