package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/destination-search/internal/destination"
)

// Connect parses redisURL, creates a client, and verifies connectivity with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

// Redis is a result cache for one session, stored as a single Redis hash.
// Each hash field is a literal query string; values are JSON result lists.
// No TTL is set: the hash lives until Clear is called.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis constructs a Redis cache scoped to the given session id.
func NewRedis(client *redis.Client, sessionID string) *Redis {
	return &Redis{client: client, key: Key(sessionID)}
}

// Key returns the Redis key of the hash holding a session's results.
func Key(sessionID string) string {
	return "search:" + sessionID + ":results"
}

// sessionKeyPattern matches the result hash of every session.
const sessionKeyPattern = "search:*:results"

// PurgeSessions deletes every session result hash and reports how many were
// removed. Sessions live in process memory, so hashes left by a previous
// process can never be reached or cleared again.
func PurgeSessions(ctx context.Context, client *redis.Client) (int, error) {
	removed := 0
	iter := client.Scan(ctx, 0, sessionKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("deleting %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scanning session keys: %w", err)
	}
	return removed, nil
}

// Get retrieves the results cached for query.
// A miss returns nil, false, nil.
func (c *Redis) Get(ctx context.Context, query string) ([]destination.Destination, bool, error) {
	val, err := c.client.HGet(ctx, c.key, query).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get for query %q: %w", query, err)
	}

	var results []destination.Destination
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil, false, fmt.Errorf("unmarshaling cached results for query %q: %w", query, err)
	}
	if results == nil {
		results = []destination.Destination{}
	}

	return results, true, nil
}

// Put stores results for query, overwriting any previous entry.
func (c *Redis) Put(ctx context.Context, query string, results []destination.Destination) error {
	if results == nil {
		results = []destination.Destination{}
	}

	b, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling results for query %q: %w", query, err)
	}

	if err := c.client.HSet(ctx, c.key, query, b).Err(); err != nil {
		return fmt.Errorf("cache put for query %q: %w", query, err)
	}

	return nil
}

// Clear removes every cached result of the session.
func (c *Redis) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("cache clear for %s: %w", c.key, err)
	}
	return nil
}
