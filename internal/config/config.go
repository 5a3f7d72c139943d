package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the workspace configuration file.
const FileName = "shamba.yaml"

// Environment overrides, also read from a workspace .env file.
const (
	EnvDatabaseDriver = "SHAMBA_DATABASE_DRIVER"
	EnvDatabaseDSN    = "SHAMBA_DATABASE_DSN"
)

// Config represents the top-level shamba.yaml configuration.
type Config struct {
	Farm     FarmConfig     `yaml:"farm"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	Git      GitConfig      `yaml:"git"`
	Server   ServerConfig   `yaml:"server"`
}

// FarmConfig identifies the farm.
type FarmConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// DatabaseConfig selects the SQL backend holding plots and the expense ledger.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "pgx"
	DSN    string `yaml:"dsn"`    // file path for sqlite, URL for pgx
}

// ImportConfig controls the expense import pipeline.
type ImportConfig struct {
	TemplateTasks []string `yaml:"template_tasks"`
	Atomic        bool     `yaml:"atomic"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a shamba.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv lets SHAMBA_DATABASE_* variables override the database section.
// Values come from the process environment first, then from envFile if present.
func ApplyEnv(cfg *Config, envFile string) error {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		if vals != nil {
			fileVals = vals
		}
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileVals[key]
	}

	if v := lookup(EnvDatabaseDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := lookup(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default(farmName string) *Config {
	return &Config{
		Farm: FarmConfig{
			Name:     farmName,
			Currency: "KES",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/shamba.db",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Shamba Importer",
			AuthorEmail: "importer@shamba.dev",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
