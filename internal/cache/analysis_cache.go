package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
)

const (
	analysisKeyPrefix = "dispatch:analysis:"
	scanBatchSize     = 100
)

// AnalysisCache stores finished analysis results keyed by their inputs.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*dispatch.Result, bool, error)
	Set(ctx context.Context, key string, res dispatch.Result) error
	// Purge drops every cached analysis and returns how many entries went.
	Purge(ctx context.Context) (int, error)
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	client, err := connectRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisAnalysisCache{
		client: client,
		ttl:    resultTTL(cfg),
	}, nil
}

func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) Get(ctx context.Context, key string) (*dispatch.Result, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var res dispatch.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, false, fmt.Errorf("decode analysis cache: %w", err)
	}

	return &res, true, nil
}

func (c *redisAnalysisCache) Set(ctx context.Context, key string, res dispatch.Result) error {
	if !res.OK() {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAnalysisCache) Purge(ctx context.Context) (int, error) {
	return purgePrefix(ctx, c.client, analysisKeyPrefix, scanBatchSize)
}

func (c *noopAnalysisCache) Get(context.Context, string) (*dispatch.Result, bool, error) {
	return nil, false, nil
}

func (c *noopAnalysisCache) Set(context.Context, string, dispatch.Result) error {
	return nil
}

func (c *noopAnalysisCache) Purge(context.Context) (int, error) {
	return 0, nil
}

// AnalysisKey hashes the raw workbook bytes together with the parameters that
// change the output. RunID is excluded; AsOf only counts by calendar day.
func AnalysisKey(inventory, promotion []byte, p dispatch.Params) string {
	h := sha1.New()
	writePart := func(b []byte) {
		h.Write([]byte(strconv.Itoa(len(b))))
		h.Write([]byte{':'})
		h.Write(b)
	}

	writePart(inventory)
	writePart(promotion)
	writePart([]byte(strconv.FormatFloat(p.LeadTime, 'f', -1, 64)))
	writePart([]byte(p.SalesPolicy))
	if !p.AsOf.IsZero() {
		writePart([]byte(p.AsOf.Format("2006-01-02")))
	}

	return analysisKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
