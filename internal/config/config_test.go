package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
  path: test.db
`)
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Progress.CacheTTL())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: oracle
`)
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_ShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: short
`)
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "JWT secret is too short")
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: mysql
`)
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}
