// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the explicit configuration the pipeline is constructed with.
// There is no implicit teardown: the pipeline keeps no background state.
type Config struct {
	RawBaseDir   string // root directory for raw extracts
	ProcessedDir string // root directory for processed output
	DuckDBPath   string // analytics store; defaults under ProcessedDir
	MetaDBPath   string // SQLite run registry; defaults under ProcessedDir
	FKStrategy   string // filter (default), strict, or warn
	Schedule     string // cron expression for `etl schedule`; empty disables
	DatasetsFile string // optional YAML overriding the built-in dataset catalog
	LogLevel     string // debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during loading.
	// They are logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults. Both data directories are required; the database paths default
// to conventional locations under the processed directory.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		RawBaseDir:   os.Getenv("RAW_DATA_DIR"),
		ProcessedDir: os.Getenv("PROCESSED_DATA_DIR"),
		DuckDBPath:   os.Getenv("ETL_DB_PATH"),
		MetaDBPath:   os.Getenv("META_DB_PATH"),
		FKStrategy:   os.Getenv("FK_STRATEGY"),
		Schedule:     os.Getenv("ETL_SCHEDULE"),
		DatasetsFile: os.Getenv("DATASETS_FILE"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}

	if cfg.RawBaseDir == "" {
		return nil, fmt.Errorf("RAW_DATA_DIR must be set")
	}
	if cfg.ProcessedDir == "" {
		return nil, fmt.Errorf("PROCESSED_DATA_DIR must be set")
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = filepath.Join(cfg.ProcessedDir, "barcelona.duckdb")
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = filepath.Join(cfg.ProcessedDir, "etl_meta.sqlite")
	}
	if cfg.FKStrategy == "" {
		cfg.FKStrategy = "filter"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DatasetsFile == "" {
		cfg.Warnings = append(cfg.Warnings, "DATASETS_FILE not set — using the built-in dataset catalog")
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over .env entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
