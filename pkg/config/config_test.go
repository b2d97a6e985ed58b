package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultListen, cfg.Server.Listen)

	// Local storage is the fallback backend.
	require.NotNil(t, cfg.Storage.Local)
	assert.True(t, cfg.Storage.Local.Enabled)
	assert.Equal(t, DefaultHistoryDir, cfg.Storage.Local.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: info
server:
  listen: ":9000"
storage:
  local:
    enabled: true
    path: ./data
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, ":9000", cfg.Server.Listen)
				assert.Equal(t, "./data", cfg.Storage.Local.Path)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"TRENDOOR_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "string override - storage path",
			envVars: map[string]string{
				"TRENDOOR_STORAGE_LOCAL_PATH": "/srv/history",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/history", cfg.Storage.Local.Path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(path)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_MergesMultipleFiles(t *testing.T) {
	base := writeConfig(t, `
global:
  log_level: info
server:
  listen: ":9000"
`)
	override := writeConfig(t, `
global:
  log_level: warn
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Global.LogLevel)
	assert.Equal(t, ":9000", cfg.Server.Listen)
}

func TestValidate_StorageBackends(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Local: &LocalStorageConfig{Enabled: true, Path: "./data"},
			S3:    &S3StorageConfig{Enabled: true, Bucket: "b"},
		},
	}
	assert.Error(t, cfg.Validate())

	cfg.Storage.Local.Enabled = false
	assert.NoError(t, cfg.Validate())

	cfg.Storage.S3.Bucket = ""
	assert.Error(t, cfg.Validate())

	cfg.Storage.S3.Enabled = false
	assert.Error(t, cfg.Validate())
}

func TestValidate_WriteTokensAndIndexing(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Local: &LocalStorageConfig{Enabled: true, Path: "./data"},
		},
	}

	cfg.Server.Auth.WriteTokens = []WriteToken{{Name: "ci"}}
	assert.Error(t, cfg.Validate())

	cfg.Server.Auth.WriteTokens[0].Hash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, cfg.Validate())

	cfg.Indexing = &IndexingConfig{Enabled: true}
	assert.Error(t, cfg.Validate())

	cfg.Indexing.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.Indexing.Database.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())
}
