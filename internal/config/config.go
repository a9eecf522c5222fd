// Package config loads and saves the application configuration document.
//
// The configuration lives as config.json inside the data directory and is a
// whole-document read/write: callers load it per call and the model gateway
// is constructed from an explicit snapshot, so a saved change takes effect
// on the next construction rather than mutating a shared instance.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	dberrors "double/internal/errors"
)

// ModelConfig holds one provider entry.
type ModelConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	APIKey       string `json:"apiKey" mapstructure:"apiKey"`
	DefaultModel string `json:"defaultModel" mapstructure:"defaultModel"`
	BaseURL      string `json:"baseUrl" mapstructure:"baseUrl"`
}

// Config is the full configuration document.
type Config struct {
	Version      string                 `json:"version" mapstructure:"version"`
	Theme        string                 `json:"theme" mapstructure:"theme"`
	Models       map[string]ModelConfig `json:"models" mapstructure:"models"`
	DefaultModel string                 `json:"defaultModel" mapstructure:"defaultModel"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Version: "1.0.0",
		Theme:   "auto",
		Models: map[string]ModelConfig{
			"deepseek": {
				Enabled:      true,
				DefaultModel: "deepseek-chat",
				BaseURL:      "https://api.deepseek.com",
			},
			"moonshot": {
				Enabled:      true,
				DefaultModel: "moonshot-v1-128k",
				BaseURL:      "https://api.moonshot.cn/v1",
			},
		},
		DefaultModel: "deepseek",
	}
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".double"
	}
	return filepath.Join(home, ".double")
}

// Load reads config.json from dataDir, writing and returning the defaults
// when the file does not exist yet.
func Load(dataDir string) (Config, error) {
	path := filepath.Join(dataDir, "config.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(dataDir, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Models == nil {
		cfg.Models = map[string]ModelConfig{}
	}
	return cfg, nil
}

// Save writes the whole configuration document.
func Save(dataDir string, cfg Config) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return dberrors.NewPersistenceError("mkdir", dataDir, err)
	}
	path := filepath.Join(dataDir, "config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", path, err)
	}
	return nil
}

// Model resolves the provider entry for name, falling back to the configured
// default when name is empty.
func (c Config) Model(name string) (string, ModelConfig, bool) {
	if name == "" {
		name = c.DefaultModel
	}
	mc, ok := c.Models[name]
	return name, mc, ok
}
