package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	d, err := cfg.GetKeywordDebounce()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, d)
}

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
backend = "badger"

[filter]
keyword_debounce = "150ms"
`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "150ms", cfg.Filter.KeywordDebounce)
	assert.Equal(t, "owned_cards_v1", cfg.Storage.OwnershipKey)
	assert.Equal(t, 8787, cfg.Server.Port)
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage\n"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Catalog.Path = "/data/cards.json"
	cfg.App.DebugMode = true

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"redis without url", func(c *Config) { c.Storage.Backend = "redis" }},
		{"empty key", func(c *Config) { c.Storage.GroupsKey = "" }},
		{"same keys", func(c *Config) { c.Storage.GroupsKey = c.Storage.OwnershipKey }},
		{"bad debounce", func(c *Config) { c.Filter.KeywordDebounce = "soon" }},
		{"negative debounce", func(c *Config) { c.Filter.KeywordDebounce = "-1s" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStoragePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/tmp/x.db"
	path, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", path)

	cfg.Storage.Path = ""
	cfg.Storage.Backend = "memory"
	path, err = cfg.StoragePath()
	require.NoError(t, err)
	assert.Empty(t, path)
}
