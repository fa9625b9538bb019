package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "kv:\n  block_cache_size_mb: 512\nfulltext:\n  stemming_enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 512, cfg.KV.BlockCacheSizeMB)
	require.False(t, cfg.Fulltext.StemmingEnabled)
	require.Equal(t, Default().KV.MemtableSizeMB, cfg.KV.MemtableSizeMB) // untouched field keeps its default
}

func TestLoadEnvOverridesYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "kv:\n  block_cache_size_mb: 512\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("THEMIS_KV_BLOCK_CACHE_SIZE_MB", "1024")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1024, cfg.KV.BlockCacheSizeMB)
}
