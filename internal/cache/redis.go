package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete borra KEYS[1] solo si su valor es ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// redisClient implementa Client usando Redis.
type redisClient struct {
	client *redis.Client
	prefix string
}

// NewRedis crea un cliente de cache Redis y verifica la conexión.
func NewRedis(ctx context.Context, cfg Config) (*redisClient, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &redisClient{client: rdb, prefix: cfg.Prefix}, nil
}

// NewRedisFromClient envuelve un *redis.Client existente (tests).
func NewRedisFromClient(rdb *redis.Client, prefix string) *redisClient {
	return &redisClient{client: rdb, prefix: prefix}
}

func (c *redisClient) key(k string) string { return prefixed(c.prefix, k) }

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache: redis get: %w", err)
	}
	return val, nil
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

func (c *redisClient) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, c.client, []string{c.key(key)}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("cache: redis compare-and-delete: %w", err)
	}
	return n > 0, nil
}

func (c *redisClient) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := c.key(key)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("cache: redis incr: %w", err)
	}

	left := ttl.Val()
	// Primer hit (o una key que quedó sin expiración).
	if incr.Val() == 1 || left < 0 {
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("cache: redis expire: %w", err)
		}
		left = window
	}
	return incr.Val(), left, nil
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisClient) Close() error {
	return c.client.Close()
}

func (c *redisClient) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, err
	}

	var hits, misses int64
	info, _ := c.client.Info(ctx, "stats").Result()
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			fmt.Sscanf(v, "%d", &hits)
		}
		if v, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			fmt.Sscanf(v, "%d", &misses)
		}
	}

	return Stats{Driver: "redis", Keys: keys, Hits: hits, Misses: misses}, nil
}
