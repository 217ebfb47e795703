package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RAW_DATA_DIR", "/data/raw")
	t.Setenv("PROCESSED_DATA_DIR", "/data/processed")
}

func clearOptionalEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ETL_DB_PATH", "META_DB_PATH", "FK_STRATEGY", "ETL_SCHEDULE", "DATASETS_FILE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/raw", cfg.RawBaseDir)
	assert.Equal(t, filepath.Join("/data/processed", "barcelona.duckdb"), cfg.DuckDBPath)
	assert.Equal(t, filepath.Join("/data/processed", "etl_meta.sqlite"), cfg.MetaDBPath)
	assert.Equal(t, "filter", cfg.FKStrategy)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Warnings) // no DATASETS_FILE
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("RAW_DATA_DIR", "")
	t.Setenv("PROCESSED_DATA_DIR", "/data/processed")
	_, err := LoadFromEnv()
	require.Error(t, err)

	t.Setenv("RAW_DATA_DIR", "/data/raw")
	t.Setenv("PROCESSED_DATA_DIR", "")
	_, err = LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)
	t.Setenv("ETL_DB_PATH", "/elsewhere/store.duckdb")
	t.Setenv("FK_STRATEGY", "strict")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/store.duckdb", cfg.DuckDBPath)
	assert.Equal(t, "strict", cfg.FKStrategy)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadDotEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DOTENV_TEST_KEY", "")

	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDOTENV_TEST_KEY=\"from-file\"\n\nBROKEN LINE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("DOTENV_TEST_KEY"))

	// Existing env vars take precedence.
	t.Setenv("DOTENV_TEST_KEY", "from-env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_TEST_KEY"))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}
