package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultCLIConfigPath returns the default admin CLI profile path (~/.sitecontrol/config.yml).
func DefaultCLIConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".sitecontrol", "config.yml"), nil
}

// CLIConfig is the admin CLI profile. Flags and environment variables take
// precedence over it.
type CLIConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	CachePath   string `yaml:"cache_path,omitempty"`
}

// Set assigns a profile key by its YAML name.
func (c *CLIConfig) Set(key, value string) error {
	switch key {
	case "database_url":
		c.DatabaseURL = value
	case "cache_path":
		c.CachePath = value
	default:
		return fmt.Errorf("unknown config key %q (want database_url or cache_path)", key)
	}
	return nil
}

// LoadCLIConfig reads the profile at path.
// If the file does not exist, an empty profile is returned.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CLIConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the profile to path, creating directories as needed.
// The file holds a database URL, so it is user-only.
func (c *CLIConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
