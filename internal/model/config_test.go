package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultBaseURL, cfg.QBTime.BaseURL)
	assert.Equal(t, DefaultPMGroup, cfg.QBTime.PMGroup)
	assert.Equal(t, DefaultTechGroup, cfg.QBTime.TechGroup)
	assert.Equal(t, 500, cfg.Sync.DebounceMs)
	assert.Equal(t, "file", cfg.Cache.Driver)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TSHEETS_BASE_URL", "http://localhost:9999/api/v1/")
	t.Setenv("QBTIME_PM_GROUP", "Supervisors")
	t.Setenv("QBTIME_TOKEN", "S.secret")
	t.Setenv("DB_DRIVER", "Postgres")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/api/v1", cfg.QBTime.BaseURL)
	assert.Equal(t, "Supervisors", cfg.QBTime.PMGroup)
	assert.Equal(t, "S.secret", cfg.QBTime.Token)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  listen: ":9090"
qbtime:
  tech_group: "Field Crew"
sync:
  debounce_ms: 250
directory:
  refresh_cron: "@every 15m"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "Field Crew", cfg.QBTime.TechGroup)
	assert.Equal(t, DefaultPMGroup, cfg.QBTime.PMGroup)
	assert.Equal(t, 250, cfg.Sync.DebounceMs)
	assert.Equal(t, "@every 15m", cfg.Directory.RefreshCron)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_OmitsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.QBTime.Token = "S.secret"
	cfg.Server.Listen = ":7070"

	require.NoError(t, SaveConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "S.secret")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", loaded.Server.Listen)
	assert.Empty(t, loaded.QBTime.Token)
}
