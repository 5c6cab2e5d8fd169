package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"STUDIA_CONFIG", "STUDIA_DATA_DIR", "STUDIA_BACKEND", "STUDIA_BACKEND_URL",
		"STUDIA_ANON_KEY", "STUDIA_JWT_SECRET", "STUDIA_LOG_LEVEL", "STUDIA_TIMEOUT", "STUDIA_RPS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", DefaultConfigFileName)
	t.Setenv("STUDIA_DATA_DIR", dir)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "config file should be created on first launch")

	assert.Equal(t, BackendLocal, cfg.Backend.Kind)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, filepath.Join(dir, DefaultKVName), cfg.KVPath)
	assert.Equal(t, filepath.Join(dir, DefaultLocalDBName), cfg.Local.DBPath)
	assert.Equal(t, filepath.Join(dir, DefaultLogName), cfg.Log.File)
	assert.Equal(t, "q", cfg.Keys.Quit)
}

func TestLoadOrCreate_ReadsExistingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	content := `
data_dir = "` + filepath.ToSlash(dir) + `"
kv_path = "prefs.db"

[backend]
kind = "remote"
url = "https://example.supabase.co"
anon_key = "anon"

[keys]
quit = "x"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Backend.Kind)
	assert.Equal(t, "https://example.supabase.co", cfg.Backend.URL)
	assert.Equal(t, filepath.Join(dir, "prefs.db"), cfg.KVPath)
	assert.Equal(t, "x", cfg.Keys.Quit)
	assert.Equal(t, "a", cfg.Keys.Add, "unset keys keep their defaults")
}

func TestLoadOrCreate_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("STUDIA_DATA_DIR", dir)
	t.Setenv("STUDIA_BACKEND", "REMOTE")
	t.Setenv("STUDIA_BACKEND_URL", "http://localhost:54321")
	t.Setenv("STUDIA_ANON_KEY", "key")
	t.Setenv("STUDIA_TIMEOUT", "3s")

	cfg, err := LoadOrCreate(filepath.Join(dir, DefaultConfigFileName))
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Backend.Kind)
	assert.Equal(t, "http://localhost:54321", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
}

func TestLoadOrCreate_RemoteNeedsURL(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("STUDIA_DATA_DIR", dir)
	t.Setenv("STUDIA_BACKEND", "remote")

	_, err := LoadOrCreate(filepath.Join(dir, DefaultConfigFileName))
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUDIA_CONFIG", "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ResolveConfigPath())
}
