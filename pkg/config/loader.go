package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config at path, fills defaults, then applies
// environment overrides. Environment variables win over the file so the same
// image can run in every environment.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	return &cfg, nil
}

// GetEnv returns the environment variable or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
