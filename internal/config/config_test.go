package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "crm.events", cfg.RabbitExchange)
	assert.False(t, cfg.SignupEnabled)
	assert.False(t, cfg.SeedAdminConfigured())
	assert.False(t, cfg.BackupConfigured())
}

func TestLoadRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsEmptyDatabaseURL(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "  ")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://crm@localhost/crm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SEED_ADMIN_EMAIL", "admin@crm.local")
	t.Setenv("SEED_ADMIN_PASSWORD", "Admin@1234")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.SeedAdminConfigured())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
