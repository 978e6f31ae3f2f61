package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func unsetenv(t *testing.T, keys ...string) {
	for _, k := range keys {
		// Setenv restores the previous value at cleanup
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	unsetenv(t, "NATS_URL", "LISTEN_PORT", "API_URL")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, nats.DefaultURL, cfg.NatsURL)
	require.Equal(t, 8080, cfg.ListenPort)
	require.Equal(t, "http://localhost:8080", cfg.ApiURL)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	unsetenv(t, "DB_URL")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("db_url: postgres://file\nlisten_port: 9000\n"), 0o644))
	t.Setenv("LISTEN_PORT", "9100")
	t.Setenv("OTLP_URL", "collector:4317")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "postgres://file", cfg.DbURL)
	require.Equal(t, 9100, cfg.ListenPort)
	require.Equal(t, "collector:4317", cfg.OtlpURL)
}
