package results

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage provides Redis-backed persistence for result snapshots,
// keyed by run name.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a new Redis storage backend.
// Returns error if connection fails.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "rankeval:results:",
		ttl:    7 * 24 * time.Hour, // Keep a week of runs by default
	}, nil
}

// Save stores a snapshot under the given run name.
func (rs *RedisStorage) Save(ctx context.Context, run string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := rs.client.Set(ctx, rs.prefix+run, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	return nil
}

// Load retrieves the snapshot stored under the given run name.
func (rs *RedisStorage) Load(ctx context.Context, run string) (Snapshot, error) {
	data, err := rs.client.Get(ctx, rs.prefix+run).Bytes()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	return snapshot, nil
}

// List returns the run names with stored snapshots.
func (rs *RedisStorage) List(ctx context.Context) ([]string, error) {
	var runs []string

	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		runs = append(runs, strings.TrimPrefix(iter.Val(), rs.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	return runs, nil
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
