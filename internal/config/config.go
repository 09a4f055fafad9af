// Package config loads electromanage configuration.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, a .env file, ELECTROMANAGE_* environment variables, and
// finally command-line flags (applied by the cli package).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Sync backends.
const (
	BackendNone  = "none"
	BackendGist  = "gist"
	BackendRedis = "redis"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ELECTROMANAGE_"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Sync     SyncConfig     `yaml:"sync"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type SyncConfig struct {
	Backend      string        `yaml:"backend"` // none | gist | redis
	Timeout      time.Duration `yaml:"timeout"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Gist         GistConfig    `yaml:"gist"`
	Redis        RedisConfig   `yaml:"redis"`
}

type GistConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
	UserID    string `yaml:"userId"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "electromanage.db"},
		Log:      LogConfig{Level: "info"},
		Sync: SyncConfig{
			Backend:      BackendNone,
			Timeout:      15 * time.Second,
			Debounce:     750 * time.Millisecond,
			PollInterval: 30 * time.Second,
			Gist:         GistConfig{URL: "https://api.github.com"},
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				Namespace: "electromanage",
				UserID:    "default",
			},
		},
	}
}

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the YAML file at path (if
// any), the .env file at dotenv (if it exists) and the process environment.
// An empty path falls back to $ELECTROMANAGE_CONFIG.
func Load(path, dotenv string) (Config, error) {
	lookup := LookupFunc(os.LookupEnv)
	if dotenv != "" {
		vars, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", dotenv, err)
		}
		lookup = layered(os.LookupEnv, vars)
	}

	if path == "" {
		path, _ = lookup(EnvPrefix + "CONFIG")
	}
	return LoadWith(path, lookup)
}

// LoadWith is Load with an explicit environment.
func LoadWith(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(cfg)
}

// layered looks in primary first, then in the fallback map.
func layered(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("DB", &c.Database.Path)
	env.str("LOG_LEVEL", &c.Log.Level)
	env.str("SYNC_BACKEND", &c.Sync.Backend)
	env.duration("SYNC_TIMEOUT", &c.Sync.Timeout)
	env.duration("SYNC_DEBOUNCE", &c.Sync.Debounce)
	env.duration("SYNC_POLL_INTERVAL", &c.Sync.PollInterval)
	env.str("GIST_URL", &c.Sync.Gist.URL)
	env.str("GIST_TOKEN", &c.Sync.Gist.Token)
	env.str("REDIS_ADDR", &c.Sync.Redis.Addr)
	env.str("REDIS_PASSWORD", &c.Sync.Redis.Password)
	env.integer("REDIS_DB", &c.Sync.Redis.DB)
	env.str("REDIS_NAMESPACE", &c.Sync.Redis.Namespace)
	env.str("USER", &c.Sync.Redis.UserID)

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(EnvPrefix + name); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = d
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = n
}

// Validate checks the configuration for the selected backend.
func (c Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if c.Sync.Timeout <= 0 {
		errs = append(errs, errors.New("sync.timeout must be positive"))
	}
	if c.Sync.Debounce < 0 {
		errs = append(errs, errors.New("sync.debounce must not be negative"))
	}

	switch c.Sync.Backend {
	case BackendNone:
	case BackendGist:
		if c.Sync.Gist.Token == "" {
			errs = append(errs, errors.New("sync.gist.token is required for the gist backend"))
		}
		if c.Sync.Gist.URL == "" {
			errs = append(errs, errors.New("sync.gist.url is required for the gist backend"))
		}
		if c.Sync.PollInterval <= 0 {
			errs = append(errs, errors.New("sync.pollInterval must be positive"))
		}
	case BackendRedis:
		if c.Sync.Redis.Addr == "" {
			errs = append(errs, errors.New("sync.redis.addr is required for the redis backend"))
		}
		if c.Sync.Redis.UserID == "" {
			errs = append(errs, errors.New("sync.redis.userId is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("sync.backend %q must be one of none, gist, redis", c.Sync.Backend))
	}

	return errors.Join(errs...)
}
