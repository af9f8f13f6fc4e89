package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadTOML reads and parses a RouterConfig from a TOML file. YAML and TOML
// feed the same target struct.
func LoadTOML(path string) (*RouterConfig, error) {
	var cfg RouterConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
