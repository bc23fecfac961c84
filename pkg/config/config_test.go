package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "GRPC_PORT", "DATABASE_URL", "LOG_REQUESTS", "UI"} {
		// Setenv registers the restore; godotenv skips keys that exist at all.
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "0.0.0.0:8787", cfg.Addr())
	assert.Equal(t, "0.0.0.0:8788", cfg.GRPCAddr())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 127.0.0.1\nport: 9000\ngrpc_port: 0\nlog_requests: true\n"), 0o644))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "", cfg.GRPCAddr())
	assert.True(t, cfg.LogRequests)

	t.Setenv("PORT", "9100")
	cfg, err = Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_URL=postgres://calc@localhost/calc\nUI=false\n"), 0o644))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "postgres://calc@localhost/calc", cfg.DatabaseURL)
	assert.False(t, cfg.UI)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)

	t.Setenv("PORT", "not-a-number")
	_, err = Load("", "")
	require.Error(t, err)

	t.Setenv("PORT", "70000")
	_, err = Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}
