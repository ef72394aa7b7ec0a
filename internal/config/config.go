package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jasonbaker/agentm/store"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	FileName  = "agentm.toml"
	EnvPrefix = "AGENTM"
)

type Config struct {
	DB  DBConfig  `mapstructure:"db"`
	Log LogConfig `mapstructure:"log"`
}

type DBConfig struct {
	Path       string `mapstructure:"path"`
	MmapSize   int    `mapstructure:"mmap_size"`
	Cache      bool   `mapstructure:"cache"`
	CacheLimit int    `mapstructure:"cache_limit"`
}

type LogConfig struct {
	Verbose     bool `mapstructure:"verbose"`
	Development bool `mapstructure:"development"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "agentm.db")
	v.SetDefault("db.mmap_size", 0)
	v.SetDefault("db.cache", false)
	v.SetDefault("db.cache_limit", 4096)

	v.SetDefault("log.verbose", false)
	v.SetDefault("log.development", false)
}

// New returns a viper instance with defaults and AGENTM_ environment
// overrides (AGENTM_DB_PATH for db.path and so on). When path is empty, the
// nearest agentm.toml found walking up from the working directory is used,
// if any.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path == "" {
		path = findProjectConfig()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	return v, nil
}

// Load reads configuration from path (or the discovered agentm.toml).
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path must not be empty")
	}
	if c.DB.MmapSize < 0 {
		return errors.Newf("db.mmap_size must be non-negative, got %d", c.DB.MmapSize)
	}
	if c.DB.CacheLimit < 0 {
		return errors.Newf("db.cache_limit must be non-negative, got %d", c.DB.CacheLimit)
	}
	return nil
}

// StoreOptions translates the configuration into options for store.Open.
func (c *Config) StoreOptions(logger *zap.Logger) store.Options {
	return store.Options{
		Logger:       logger,
		Verbose:      c.Log.Verbose,
		MmapSize:     c.DB.MmapSize,
		CacheRecords: c.DB.Cache,
		CacheLimit:   c.DB.CacheLimit,
	}
}

// findProjectConfig searches for agentm.toml by walking up the directory tree.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
