package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/bakery-orders/internal/platform/realtime"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("BAKERY_TIMEZONE", "")
	t.Setenv("SEED_OPERATOR_USERNAME", "")
	t.Setenv("SEED_OPERATOR_PASSWORD", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "Europe/Sofia", cfg.TimeZone.String())
	assert.Equal(t, realtime.DefaultSubject, cfg.NATSSubject)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-file\nSESSION_TTL_HOURS=3\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Setenv("SESSION_TTL_HOURS", "")
	require.NoError(t, os.Unsetenv("SESSION_TTL_HOURS"))
	t.Setenv("SEED_OPERATOR_USERNAME", "")
	t.Setenv("SEED_OPERATOR_PASSWORD", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), cfg.JWTSecret)
	assert.Equal(t, 3*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadConfigValidation(t *testing.T) {
	chdirTemp(t)
	cases := map[string]map[string]string{
		"missing secret":    {"JWT_SECRET": ""},
		"bad ttl":           {"JWT_SECRET": "x", "SESSION_TTL_HOURS": "zero"},
		"bad zone":          {"JWT_SECRET": "x", "BAKERY_TIMEZONE": "Mars/Olympus"},
		"half seed account": {"JWT_SECRET": "x", "SEED_OPERATOR_USERNAME": "baker"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"JWT_SECRET", "SESSION_TTL_HOURS", "BAKERY_TIMEZONE", "SEED_OPERATOR_USERNAME", "SEED_OPERATOR_PASSWORD"} {
				t.Setenv(key, env[key])
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " yes "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "no", "off"} {
		assert.False(t, isTruthy(v), v)
	}
}
