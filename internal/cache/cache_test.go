package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/destination-search/internal/cache"
	"github.com/neexbeast/destination-search/internal/destination"
)

func newTestRedis(t *testing.T, session string) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedis(client, session), mr
}

func sampleResults() []destination.Destination {
	return []destination.Destination{
		{ID: "1", Name: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522},
		{ID: "12", Name: "Papeete", Country: "French Polynesia", Latitude: -17.5516, Longitude: -149.5585},
	}
}

// ---- Memory ----

func TestMemory_PutAndGet(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "pa", sampleResults()))

	got, ok, err := c.Get(ctx, "pa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResults(), got)
}

func TestMemory_ExactKeysOnly(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "Par", sampleResults()))

	for _, q := range []string{"Pari", "par", "Par ", " Par"} {
		_, ok, err := c.Get(ctx, q)
		require.NoError(t, err)
		assert.False(t, ok, "query %q must not hit the entry for %q", q, "Par")
	}
}

func TestMemory_PutOverwrites(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "pa", sampleResults()))
	require.NoError(t, c.Put(ctx, "pa", sampleResults()[:1]))

	got, ok, _ := c.Get(ctx, "pa")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestMemory_EmptyResultIsAHit(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "zzz", nil))

	got, ok, _ := c.Get(ctx, "zzz")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestMemory_PutCopiesInput(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	results := sampleResults()
	require.NoError(t, c.Put(ctx, "pa", results))

	results[0].Name = "mutated"
	got, _, _ := c.Get(ctx, "pa")
	assert.Equal(t, "Paris", got[0].Name)
}

func TestMemory_Clear(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "pa", sampleResults()))
	require.NoError(t, c.Clear(ctx))

	_, ok, _ := c.Get(ctx, "pa")
	assert.False(t, ok)
}

// ---- Redis ----

func TestRedis_PutAndGet(t *testing.T) {
	c, _ := newTestRedis(t, "s1")
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "pa", sampleResults()))

	got, ok, err := c.Get(ctx, "pa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResults(), got)
}

func TestRedis_Miss(t *testing.T) {
	c, _ := newTestRedis(t, "s1")

	got, ok, err := c.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got, "cache miss should return nil")
}

func TestRedis_KeysAreCaseSensitive(t *testing.T) {
	c, _ := newTestRedis(t, "s1")
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "PARIS", sampleResults()))

	_, ok, err := c.Get(ctx, "paris")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_NoTTL(t *testing.T) {
	c, mr := newTestRedis(t, "s1")
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "pa", sampleResults()))

	assert.Zero(t, mr.TTL(cache.Key("s1")))
	mr.FastForward(48 * 60 * 60 * 1e9)

	_, ok, err := c.Get(ctx, "pa")
	require.NoError(t, err)
	assert.True(t, ok, "entries must not expire")
}

func TestRedis_SessionsAreIsolated(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	a := cache.NewRedis(client, "a")
	b := cache.NewRedis(client, "b")
	require.NoError(t, a.Put(ctx, "pa", sampleResults()))

	_, ok, err := b.Get(ctx, "pa")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Clear(t *testing.T) {
	c, mr := newTestRedis(t, "s1")
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "pa", sampleResults()))
	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists(cache.Key("s1")))
	// Clearing an absent session should not error.
	require.NoError(t, c.Clear(ctx))
}

func TestRedis_CorruptEntry(t *testing.T) {
	c, mr := newTestRedis(t, "s1")
	mr.HSet(cache.Key("s1"), "pa", "not-json")

	_, ok, err := c.Get(context.Background(), "pa")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	c := cache.NewRedis(client, "s1")
	mr.Close()

	_, _, err = c.Get(context.Background(), "pa")
	require.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_OK(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()
}

func TestPurgeSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	ctx := context.Background()

	require.NoError(t, cache.NewRedis(client, "a").Put(ctx, "pa", sampleResults()))
	require.NoError(t, cache.NewRedis(client, "b").Put(ctx, "lo", sampleResults()))
	require.NoError(t, mr.Set("unrelated", "keep"))

	n, err := cache.PurgeSessions(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists(cache.Key("a")))
	assert.False(t, mr.Exists(cache.Key("b")))
	assert.True(t, mr.Exists("unrelated"))
}

func TestPurgeSessions_Empty(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	n, err := cache.PurgeSessions(context.Background(), client)
	require.NoError(t, err)
	assert.Zero(t, n)
}
