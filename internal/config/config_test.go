package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/destination-search/internal/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := config.FromLookup(lookupFrom(map[string]string{
		"STORE_URL": "http://store.local",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.BackendHTTP, cfg.StoreBackend)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceWait)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.Equal(t, 600, cfg.RateLimitPerMinute)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.PurgeRedisOnStart)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := config.FromLookup(lookupFrom(map[string]string{
		"PORT":                  "9000",
		"STORE_BACKEND":         "postgres",
		"DATABASE_URL":          "postgres://localhost/destinations",
		"SEED_FILE":             "data/destinations.json",
		"REDIS_URL":             "redis://localhost:6379/0",
		"DEBOUNCE_WAIT":         "150ms",
		"LOOKUP_TIMEOUT":        "2s",
		"MAX_SESSIONS":          "50",
		"RATE_LIMIT_PER_MINUTE": "30",
		"DB_MAX_CONNS":          "4",
		"REDIS_PURGE_ON_START":  "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, config.BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://localhost/destinations", cfg.DatabaseURL)
	assert.Equal(t, "data/destinations.json", cfg.SeedFile)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 150*time.Millisecond, cfg.DebounceWait)
	assert.Equal(t, 2*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 50, cfg.MaxSessions)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.True(t, cfg.PurgeRedisOnStart)
}

func TestFromLookup_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"http without store url", map[string]string{}},
		{"postgres without database url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite", "STORE_URL": "x"}},
		{"bad debounce", map[string]string{"STORE_URL": "x", "DEBOUNCE_WAIT": "soon"}},
		{"negative timeout", map[string]string{"STORE_URL": "x", "LOOKUP_TIMEOUT": "-1s"}},
		{"zero sessions", map[string]string{"STORE_URL": "x", "MAX_SESSIONS": "0"}},
		{"bad rate", map[string]string{"STORE_URL": "x", "RATE_LIMIT_PER_MINUTE": "many"}},
		{"bad purge flag", map[string]string{"STORE_URL": "x", "REDIS_PURGE_ON_START": "sometimes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromLookup(lookupFrom(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "http")
	t.Setenv("STORE_URL", "http://store.local")
	t.Setenv("MAX_SESSIONS", "7")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://store.local", cfg.StoreURL)
	assert.Equal(t, 7, cfg.MaxSessions)
}
