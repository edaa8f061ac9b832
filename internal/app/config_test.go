package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("POSTGRES_USER", "learnhub_app")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "@every 1h", cfg.ReconcileCron)
	assert.Equal(t, 4, cfg.ReconcileConcurrency)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.True(t, cfg.EnablePolicies)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadConfigReadsAppEnvAndEnvWins(t *testing.T) {
	dir := t.TempDir()
	file := "JWT_SECRET_KEY=from-file\nPOSTGRES_USER=file_user\nPORT=9000\n" +
		"CORS_ORIGINS=https://a.example.com, https://b.example.com\nRECONCILE_CONCURRENCY=8\n" +
		"BADGE_CDN_DOMAIN=cdn.example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(file), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("BADGE_CDN_DOMAIN", "")
	os.Unsetenv("BADGE_CDN_DOMAIN")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecretKey)
	assert.Equal(t, "7000", cfg.Port, "process env overrides app.env")
	assert.Equal(t, 8, cfg.ReconcileConcurrency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "cdn.example.com", os.Getenv("BADGE_CDN_DOMAIN"), "file-only passthrough keys are exported")
}

func TestLoadConfigEmptyCronDisablesSchedule(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("POSTGRES_USER", "learnhub_app")
	t.Setenv("RECONCILE_CRON", "")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.ReconcileCron)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("POSTGRES_USER", "learnhub_app")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}
