package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "BANCO-BCOL-001", c.AccountCode)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, 10*time.Minute, c.ImportLockTTL)
	assert.False(t, c.DevSeed)
	assert.Empty(t, c.ImportDir)
}

func TestFromEnvOverrides(t *testing.T) {
	c, err := FromEnv(envMap(map[string]string{
		"HTTP_ADDR":             ":9090",
		"LOG_LEVEL":             "DEBUG",
		"LOG_FORMAT":            "TEXT",
		"TREASURY_ACCOUNT_CODE": "CAJA-001",
		"IMPORT_LOCK_TTL":       "90s",
		"DEV_SEED":              "yes",
		"IMPORT_DIR":            "/srv/imports",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, "CAJA-001", c.AccountCode)
	assert.Equal(t, 90*time.Second, c.ImportLockTTL)
	assert.True(t, c.DevSeed)
	assert.Equal(t, "/srv/imports", c.ImportDir)

	var buf bytes.Buffer
	c.Logger(&buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "k=v")
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"IMPORT_LOCK_TTL": "soon"}))
	assert.Error(t, err)
	_, err = FromEnv(envMap(map[string]string{"LOG_FORMAT": "xml"}))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(p, []byte("TREASURY_TEST_ONLY_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TREASURY_TEST_ONLY_KEY") })

	_, err := Load(p, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("TREASURY_TEST_ONLY_KEY"))
}
