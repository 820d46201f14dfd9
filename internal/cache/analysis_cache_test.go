package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
)

func TestAnalysisKey(t *testing.T) {
	inv := []byte("inventory-bytes")
	promo := []byte("promotion-bytes")
	morning := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)

	base := AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning})
	assert.True(t, strings.HasPrefix(base, analysisKeyPrefix))

	tests := []struct {
		name string
		key  string
		same bool
	}{
		{"identical", AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning}), true},
		{"run id ignored", AnalysisKey(inv, promo, dispatch.Params{RunID: "x", LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning}), true},
		{"same day", AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: evening}), true},
		{"lead time", AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning}), false},
		{"policy", AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyBlended, AsOf: morning}), false},
		{"next day", AnalysisKey(inv, promo, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning.AddDate(0, 0, 1)}), false},
		{"swapped files", AnalysisKey(promo, inv, dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning}), false},
		{"boundary shift", AnalysisKey([]byte("inventory-bytesp"), []byte("romotion-bytes"), dispatch.Params{LeadTime: 2.5, SalesPolicy: dispatch.SalesPolicyLastMonth, AsOf: morning}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, base, tt.key)
			} else {
				assert.NotEqual(t, base, tt.key)
			}
		})
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewAnalysisCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", dispatch.Result{Message: "ok"}))

	res, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)
	n, err := c.Purge(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache.local", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache.local:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@example.com:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "example.com:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestResultTTL(t *testing.T) {
	assert.Equal(t, time.Hour, resultTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, resultTTL(config.CacheConfig{ResultTTLSeconds: 90}))
}

// TestRedisPurge needs a live server: REDIS_TEST_URL=redis://localhost:6379/15
func TestRedisPurge(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	c, err := NewAnalysisCache(config.CacheConfig{Enabled: true, RedisURL: url})
	require.NoError(t, err)
	rc := c.(*redisAnalysisCache)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		key := AnalysisKey([]byte{byte(i)}, nil, dispatch.Params{LeadTime: 2})
		require.NoError(t, c.Set(ctx, key, dispatch.Result{Message: "ok"}))
	}
	require.NoError(t, rc.client.Set(ctx, "other:key", "keep", time.Minute).Err())
	t.Cleanup(func() { rc.client.Del(context.Background(), "other:key") })

	n, err := purgePrefix(ctx, rc.client, analysisKeyPrefix, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	left, err := rc.client.Exists(ctx, "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)

	n, err = c.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
