package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port string

	StoreBackend  string
	StoreURL      string
	DatabaseURL   string
	DBMaxConns    int32
	MigrationsDir string
	SeedFile      string

	// RedisURL selects the Redis result cache when set; otherwise results
	// are cached in memory.
	RedisURL string
	// PurgeRedisOnStart deletes session result hashes left by an earlier
	// process. Leave it off when several servers share one Redis.
	PurgeRedisOnStart bool

	DebounceWait       time.Duration
	LookupTimeout      time.Duration
	MaxSessions        int
	RateLimitPerMinute int
}

// Load reads an optional .env file from the working directory, then the
// environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from the given variable lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		StoreBackend:  get("STORE_BACKEND", BackendHTTP),
		StoreURL:      get("STORE_URL", ""),
		DatabaseURL:   get("DATABASE_URL", ""),
		MigrationsDir: get("MIGRATIONS_DIR", "migrations"),
		SeedFile:      get("SEED_FILE", ""),
		RedisURL:      get("REDIS_URL", ""),
	}

	var err error
	if cfg.DebounceWait, err = parseDuration("DEBOUNCE_WAIT", get("DEBOUNCE_WAIT", "300ms")); err != nil {
		return nil, err
	}
	if cfg.LookupTimeout, err = parseDuration("LOOKUP_TIMEOUT", get("LOOKUP_TIMEOUT", "10s")); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = parsePositiveInt("MAX_SESSIONS", get("MAX_SESSIONS", "1000")); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = parsePositiveInt("RATE_LIMIT_PER_MINUTE", get("RATE_LIMIT_PER_MINUTE", "600")); err != nil {
		return nil, err
	}
	if cfg.PurgeRedisOnStart, err = strconv.ParseBool(get("REDIS_PURGE_ON_START", "false")); err != nil {
		return nil, fmt.Errorf("parsing REDIS_PURGE_ON_START: %w", err)
	}
	maxConns, err := parsePositiveInt("DB_MAX_CONNS", get("DB_MAX_CONNS", "10"))
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendHTTP:
		if c.StoreURL == "" {
			return errors.New("STORE_URL is required when STORE_BACKEND=http")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, BackendHTTP, BackendPostgres)
	}
	return nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func parsePositiveInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
