package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration: defaults, optionally overridden by a
// yaml file, then by environment variables.
type Config struct {
	Addr              string
	DBPath            string
	RetentionInterval time.Duration
	RetentionMaxIdle  time.Duration
}

func Default() Config {
	return Config{
		Addr:              ":8080",
		DBPath:            "./data/excalidraw.db",
		RetentionInterval: time.Hour,
		RetentionMaxIdle:  0,
	}
}

// fileConfig carries durations as strings so the yaml stays readable
// ("720h", "15m").
type fileConfig struct {
	Addr              string `yaml:"addr"`
	DBPath            string `yaml:"db_path"`
	RetentionInterval string `yaml:"retention_interval"`
	RetentionMaxIdle  string `yaml:"retention_max_idle"`
}

// Load builds the effective configuration. An empty path skips the file and
// uses defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if fc.Addr != "" {
			cfg.Addr = fc.Addr
		}
		if fc.DBPath != "" {
			cfg.DBPath = fc.DBPath
		}
		if fc.RetentionInterval != "" {
			d, err := time.ParseDuration(fc.RetentionInterval)
			if err != nil {
				return Config{}, fmt.Errorf("parse retention_interval: %w", err)
			}
			cfg.RetentionInterval = d
		}
		if fc.RetentionMaxIdle != "" {
			d, err := time.ParseDuration(fc.RetentionMaxIdle)
			if err != nil {
				return Config{}, fmt.Errorf("parse retention_max_idle: %w", err)
			}
			cfg.RetentionMaxIdle = d
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if dbPath := os.Getenv("EXCALIDRAW_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	return cfg, nil
}
