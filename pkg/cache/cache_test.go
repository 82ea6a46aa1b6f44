package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/pkg/cache"
)

type product struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

func setup(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.Use(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })
	return mr
}

func TestSetGetDel(t *testing.T) {
	setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "product:1", product{Name: "Ibuprofen", Stock: 12}, time.Minute))

	var got product
	require.True(t, cache.Get(ctx, "product:1", &got))
	assert.Equal(t, 12, got.Stock)

	require.NoError(t, cache.Del(ctx, "product:1"))
	assert.False(t, cache.Get(ctx, "product:1", &got))
}

func TestTTLExpiry(t *testing.T) {
	mr := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", product{Name: "x"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got product
	assert.False(t, cache.Get(ctx, "k", &got))
}

func TestRememberLoadsOnce(t *testing.T) {
	setup(t)
	ctx := context.Background()

	calls := 0
	load := func() (product, error) {
		calls++
		return product{Name: "Vitamin C", Stock: 40}, nil
	}

	for i := 0; i < 3; i++ {
		p, err := cache.Remember(ctx, "product:2", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 40, p.Stock)
	}
	assert.Equal(t, 1, calls)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	setup(t)
	_, err := cache.Remember(context.Background(), "k", time.Minute, func() (product, error) {
		return product{}, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestDisconnectedIsNoop(t *testing.T) {
	require.NoError(t, cache.Close())
	ctx := context.Background()
	assert.NoError(t, cache.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.False(t, cache.Get(ctx, "k", &v))
}
