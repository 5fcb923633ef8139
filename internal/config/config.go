package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = ":8080"
	defaultDatabasePath = "./festival.db"
	defaultAPIURL       = "http://localhost:8080/api"
	defaultLogLevel     = "info"
	defaultWatchCron    = "*/1 * * * *"
)

// AdminConfig guards the lineup import endpoint with HTTP Basic Auth.
// PasswordHash is a bcrypt hash as printed by `server hash-password`.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Enabled reports whether admin credentials are configured.
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// ServerConfig configures the schedule API.
type ServerConfig struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`
	// DatabasePath is the SQLite file; ":memory:" keeps everything in RAM.
	DatabasePath string `yaml:"database_path"`
	// RedisAddr enables the attendee-count cache when set.
	RedisAddr string `yaml:"redis_addr"`
	// CountCacheSeconds is how long cached attendee counts stay valid.
	CountCacheSeconds int `yaml:"count_cache_seconds"`
	// AllowedOrigins is passed to the CORS handler.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// RateLimit is the sustained number of mutating requests per second
	// allowed from one client address; RateBurst is the bucket size.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	Admin AdminConfig `yaml:"admin"`
}

// CountCacheTTL is CountCacheSeconds as a duration.
func (s ServerConfig) CountCacheTTL() time.Duration {
	return time.Duration(s.CountCacheSeconds) * time.Second
}

// PlannerConfig configures the terminal planner.
type PlannerConfig struct {
	// APIURL is the base URL of the schedule API, including the /api prefix.
	APIURL string `yaml:"api_url"`
	// StatePath is where the current user and theme are remembered.
	StatePath string `yaml:"state_path"`
	// TimeoutSeconds bounds every request to the API.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// WatchCron is the cron schedule used by `planner watch`.
	WatchCron string `yaml:"watch_cron"`
}

// Timeout is TimeoutSeconds as a duration.
func (p PlannerConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Config is the top-level configuration shared by both binaries.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Server   ServerConfig  `yaml:"server"`
	Planner  PlannerConfig `yaml:"planner"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: defaultLogLevel,
		Server: ServerConfig{
			Listen:            defaultListen,
			DatabasePath:      defaultDatabasePath,
			CountCacheSeconds: 30,
			AllowedOrigins:    []string{"*"},
			RateLimit:         5,
			RateBurst:         10,
		},
		Planner: PlannerConfig{
			APIURL:         defaultAPIURL,
			StatePath:      DefaultStatePath(),
			TimeoutSeconds: 10,
			WatchCron:      defaultWatchCron,
		},
	}
}

// DefaultDir is ~/.festival-planner, or the working directory when the home
// directory cannot be determined.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".festival-planner"
	}
	return filepath.Join(home, ".festival-planner")
}

// DefaultPath is the config file used when -config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultStatePath is the planner state file used when none is configured.
func DefaultStatePath() string {
	return filepath.Join(DefaultDir(), "state.yaml")
}

// Normalize fills in missing or invalid values so partially written files
// still behave.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = defaultLogLevel
	}

	s := &c.Server
	if s.Listen == "" {
		s.Listen = defaultListen
	} else if !strings.Contains(s.Listen, ":") {
		s.Listen = ":" + s.Listen
	}
	if s.DatabasePath == "" {
		s.DatabasePath = defaultDatabasePath
	}
	if s.CountCacheSeconds <= 0 {
		s.CountCacheSeconds = 30
	}
	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}
	if s.RateLimit <= 0 {
		s.RateLimit = 5
	}
	if s.RateBurst <= 0 {
		s.RateBurst = 10
	}

	p := &c.Planner
	p.APIURL = strings.TrimRight(p.APIURL, "/")
	if p.APIURL == "" {
		p.APIURL = defaultAPIURL
	}
	if p.StatePath == "" {
		p.StatePath = DefaultStatePath()
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 10
	}
	if p.WatchCron == "" {
		p.WatchCron = defaultWatchCron
	}
}

// LoadEnv reads .env files into the process environment. Missing files are
// not an error; existing variables are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Server.DatabasePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Server.RedisAddr = v
	}
	if v := os.Getenv("ADMIN_USER"); v != "" {
		c.Server.Admin.Username = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		c.Server.Admin.PasswordHash = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("API_URL"); v != "" {
		c.Planner.APIURL = v
	}
	if v := os.Getenv("API_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Planner.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.Normalize()
}

// Load reads configuration from path. On first run the file does not exist;
// it is created with defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, creating the parent directory (0700) if needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".festival-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
