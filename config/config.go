// Copyright (C) 2025 chainofproduct
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package config loads ChainOfProduct's runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration for the CLI and pipeline.
type Config struct {
	KeyStore    KeyStoreConfig `yaml:"keystore" json:"keystore"`
	DefaultName string         `yaml:"default_party" json:"default_party"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// KeyStoreConfig controls where party key material is persisted.
type KeyStoreConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, pretty
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a YAML or JSON file, applying
// defaults and ${VAR:default} environment substitution.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	SubstituteEnvVarsInConfig(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.KeyStore.Directory == "" {
		cfg.KeyStore.Directory = ".cop/keys"
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = os.Getenv("COP_PARTY")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// GetEnvironment returns the current environment from COP_ENV or ENVIRONMENT,
// defaulting to development.
func GetEnvironment() string {
	env := os.Getenv("COP_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment returns "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}
