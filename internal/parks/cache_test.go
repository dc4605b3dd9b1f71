package parks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheVersionInitialisesToOne(t *testing.T) {
	cache, _ := newTestCache(t)

	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestCacheFetchJSONPopulatesAndReuses(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, keyCalendar(3, "2024-07")...)
	require.NoError(t, err)

	loads := 0
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return []ConflictResult{{Date: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)}}, nil
	}

	var first []ConflictResult
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second []ConflictResult
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, loads)
	require.Len(t, second, 1)
	assert.True(t, second[0].Clear())
}

func TestCacheBumpInvalidatesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, keyParkList()...)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.BuildKey(ctx, keyParkList()...)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestCacheNilClientDegradesToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, keyParkList()...)
	require.NoError(t, err)

	loads := 0
	var parks []Park
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return []Park{{ID: 1, Name: "Riverbend Park"}}, nil
	}
	require.NoError(t, cache.FetchJSON(ctx, key, &parks, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &parks, loader))

	assert.Equal(t, 2, loads)
	require.Len(t, parks, 1)
	assert.Equal(t, "Riverbend Park", parks[0].Name)
}
