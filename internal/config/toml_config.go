package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML loads configuration from a vigil.toml file. Fields not
// present in the file keep their defaults.
func LoadTOML(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return cfg, nil
}
