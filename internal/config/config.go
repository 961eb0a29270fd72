// Package config loads papergraph settings from a TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file
// ($XDG_CONFIG_HOME/papergraph/config.toml), environment variables, then
// command-line flags (applied by the caller).
//
//	[api]
//	base_url = "http://localhost:8000/api"
//	top_k = 20
//
//	[layout]
//	seed = 7
//	charge_strength = -200
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/papergraph/pkg/api"
	"github.com/matzehuels/papergraph/pkg/cache"
	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/layout/force"
	"github.com/matzehuels/papergraph/pkg/pipeline"
)

const appName = "papergraph"

// Environment variables that override the file.
const (
	EnvAPIURL    = "PAPERGRAPH_API_URL"
	EnvRedisAddr = "PAPERGRAPH_REDIS_ADDR"
	EnvMongoURI  = "PAPERGRAPH_MONGO_URI"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

var backends = []string{BackendFile, BackendRedis, BackendMongo, BackendNone}

// Config is the full settings tree.
type Config struct {
	API    APIConfig    `toml:"api"`
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// APIConfig points at the search backend.
type APIConfig struct {
	BaseURL   string        `toml:"base_url"`
	TopK      int           `toml:"top_k"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"` // Requests per second; 0 disables limiting
}

// LayoutConfig overrides simulation and resolution parameters. Zero values
// keep the defaults.
type LayoutConfig struct {
	force.Options

	ExplicitEdgeScale float64 `toml:"explicit_edge_scale"`
	SynthEdgeScale    float64 `toml:"synth_edge_scale"`
	AsyncThreshold    int     `toml:"async_threshold"`
}

// CacheConfig selects the layout/artifact cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"` // File backend; empty uses the XDG cache dir
	Scope         string `toml:"scope"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig configures `papergraph serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   api.DefaultBaseURL,
			TopK:      api.DefaultTopK,
			Timeout:   api.DefaultTimeout,
			RateLimit: api.DefaultRateLimit,
		},
		Layout: LayoutConfig{Options: force.DefaultOptions()},
		Cache:  CacheConfig{Backend: BackendFile},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// =============================================================================
// Paths
// =============================================================================

// Dir returns the config directory (~/.config/papergraph/).
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the file cache directory (~/.cache/papergraph/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the file at path (the default path when empty), applies
// environment overrides and validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Cache.MongoURI = v
	}
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	if err := pgerrors.ValidateURL(c.API.BaseURL); err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, err, "api.base_url")
	}
	if c.API.TopK < 0 {
		return pgerrors.New(pgerrors.ErrCodeInvalidConfig, "api.top_k must be non-negative, got %d", c.API.TopK)
	}
	if !slices.Contains(backends, c.Cache.Backend) {
		return pgerrors.New(pgerrors.ErrCodeInvalidConfig, "cache.backend must be one of %v, got %q", backends, c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return pgerrors.New(pgerrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if c.Cache.Backend == BackendMongo && c.Cache.MongoURI == "" {
		return pgerrors.New(pgerrors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
	}
	layout := c.Layout.Options
	layout.SetDefaults()
	if err := layout.Validate(); err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidConfig, err, "layout")
	}
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// PipelineOptions converts the layout section to pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Graph: graph.Options{
			ExplicitEdgeScale: c.Layout.ExplicitEdgeScale,
			SynthEdgeScale:    c.Layout.SynthEdgeScale,
		},
		Layout:         c.Layout.Options,
		AsyncThreshold: c.Layout.AsyncThreshold,
	}
	opts.SetDefaults()
	return opts
}

// Keyer returns the cache keyer, scoped when cache.scope is set.
func (c *Config) Keyer() cache.Keyer {
	k := cache.NewDefaultKeyer()
	if c.Cache.Scope != "" {
		k = cache.NewScopedKeyer(k, c.Cache.Scope)
	}
	return k
}

// OpenCache connects the configured backend. The caller closes it.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   appName + ":",
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	case BackendMongo:
		mc, err := cache.NewMongoCache(ctx, cache.MongoOptions{
			URI:      c.Cache.MongoURI,
			Database: c.Cache.MongoDatabase,
		})
		if err != nil {
			return nil, err
		}
		return mc, nil
	}

	dir := c.Cache.Dir
	if dir == "" {
		d, err := CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// ClientOptions converts the api section to client options.
func (c *Config) ClientOptions() []api.Option {
	return []api.Option{
		api.WithTimeout(c.API.Timeout),
		api.WithRateLimit(c.API.RateLimit),
		api.WithTopK(c.API.TopK),
	}
}
