package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, "agentm.db", cfg.DB.Path)
	assert.Equal(t, 4096, cfg.DB.CacheLimit)
	assert.False(t, cfg.DB.Cache)
	assert.False(t, cfg.Log.Verbose)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
[db]
path = "/var/lib/agentm/data.db"
cache = true
mmap_size = 1048576

[log]
verbose = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/agentm/data.db", cfg.DB.Path)
	assert.True(t, cfg.DB.Cache)
	assert.Equal(t, 1048576, cfg.DB.MmapSize)
	assert.True(t, cfg.Log.Verbose)
	assert.False(t, cfg.Log.Development)

	opt := cfg.StoreOptions(nil)
	assert.True(t, opt.CacheRecords)
	assert.True(t, opt.Verbose)
	assert.Equal(t, 1048576, opt.MmapSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AGENTM_DB_PATH", "from-env.db")
	t.Setenv("AGENTM_LOG_DEVELOPMENT", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)

	v, err := New("")
	require.NoError(t, err)
	cfg, err = LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DB.Path)
	assert.True(t, cfg.Log.Development)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{DB: DBConfig{Path: "x.db"}}, false},
		{"empty path", Config{}, true},
		{"negative mmap", Config{DB: DBConfig{Path: "x.db", MmapSize: -1}}, true},
		{"negative cache limit", Config{DB: DBConfig{Path: "x.db", CacheLimit: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
