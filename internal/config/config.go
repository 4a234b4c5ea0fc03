// Package config provides configuration management for assetgraph.
//
// Config file locations (priority order):
//  1. $ASSETGRAPH_CONFIG
//  2. ./assetgraph.yaml
//  3. ~/.config/assetgraph/config.yaml
//  4. /etc/assetgraph/config.yaml
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DriverSQLite and DriverNeo4j name the supported storage backends.
const (
	DriverSQLite = "sqlite"
	DriverNeo4j  = "neo4j"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Taxonomy TaxonomyConfig `yaml:"taxonomy"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects and parameterizes the storage backend. Path
// applies to sqlite; URI, Username, Password and Name apply to neo4j.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// TaxonomyConfig controls the relationship taxonomy gate. A nil Enforce
// means enabled.
type TaxonomyConfig struct {
	Enforce *bool `yaml:"enforce"`
}

// EventsConfig controls the mutation event log.
type EventsConfig struct {
	Emit bool `yaml:"emit"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load finds and loads the config file, or returns defaults if none found.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "./assetgraph.db"},
		Log:      LogConfig{Level: "info"},
	}
}

// EnforceTaxonomy reports whether the taxonomy gate is enabled.
func (c *Config) EnforceTaxonomy() bool {
	return c.Taxonomy.Enforce == nil || *c.Taxonomy.Enforce
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "./assetgraph.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverNeo4j:
		if c.Database.URI == "" {
			return fmt.Errorf("config: neo4j driver requires database.uri")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}
