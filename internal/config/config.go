// Package config loads the client configuration: a YAML file under the
// user config dir, with environment variables taking precedence so a
// .env file (loaded by the root command) can override per-project.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://127.0.0.1:8000/api/v1"

	configFileName = "config.yaml"
	tokenFileName  = "token"
	previewsDir    = "previews"
)

type Config struct {
	ServerURL   string `yaml:"server_url"`
	TokenPath   string `yaml:"token_path,omitempty"`
	PreviewsDir string `yaml:"previews_dir,omitempty"`
}

// Dir returns the config directory, honoring NIMBUS_CONFIG_DIR.
func Dir() string {
	if dir := os.Getenv("NIMBUS_CONFIG_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "nimbus")
}

// Load reads the config file if present and applies defaults and
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(Dir(), configFileName)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if url := os.Getenv("NIMBUS_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.TokenPath == "" {
		cfg.TokenPath = filepath.Join(Dir(), tokenFileName)
	}
	if cfg.PreviewsDir == "" {
		cfg.PreviewsDir = filepath.Join(Dir(), previewsDir)
	}
	return cfg, nil
}

// Save writes the config file, creating the directory as needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(Dir(), configFileName), data, 0600)
}
