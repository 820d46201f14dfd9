package cache

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/promo-dispatch/internal/config"
)

const (
	defaultCacheTTL  = time.Hour
	redisPingTimeout = 5 * time.Second
)

// connectRedis opens a client and checks the server answers before handing it out.
func connectRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}
	return client, nil
}

// redisOptions prefers REDIS_URL and falls back to host, port and DB.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(cmp.Or(cfg.RedisHost, "127.0.0.1"), cmp.Or(cfg.RedisPort, "6379")),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func resultTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ResultTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(cfg.ResultTTLSeconds) * time.Second
}

// purgePrefix unlinks every key matching prefix*, batchSize keys per round trip,
// and returns how many keys were removed.
func purgePrefix(ctx context.Context, client *redis.Client, prefix string, batchSize int) (int, error) {
	iter := client.Scan(ctx, 0, prefix+"*", int64(batchSize)).Iterator()

	removed := 0
	batch := make([]string, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}
	return removed, flush()
}
