package spacetravelling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercisePageCache runs the PageCache contract against c.
func exercisePageCache(t *testing.T, c PageCache) {
	t.Helper()
	ctx := context.Background()
	generated := time.Date(2021, 3, 25, 19, 25, 0, 0, time.UTC)

	_, ok, err := c.Get(ctx, "/post/a/")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, Page{Key: "/post/a/", Kind: "post", Body: []byte("<p>a</p>"), GeneratedAt: generated}))
	require.NoError(t, c.Put(ctx, Page{Key: "/", Kind: "index", Body: []byte("home"), GeneratedAt: generated}))
	require.NoError(t, c.Put(ctx, Page{Key: "/post/gone/", Kind: "post", NotFound: true, GeneratedAt: generated}))

	p, ok, err := c.Get(ctx, "/post/a/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<p>a</p>", string(p.Body))
	assert.True(t, p.GeneratedAt.Equal(generated))

	p, ok, err = c.Get(ctx, "/post/gone/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.NotFound)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/post/a/", "/post/gone/"}, keys)

	require.NoError(t, c.Delete(ctx, "/post/a/"))
	_, ok, err = c.Get(ctx, "/post/a/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	exercisePageCache(t, NewMemoryCache())
}

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "spacetravelling:test:", ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	require.NoError(t, c.Ping(context.Background()))
	exercisePageCache(t, c)

	assert.True(t, mr.Exists("spacetravelling:test:/"))
	assert.Equal(t, time.Minute, mr.TTL("spacetravelling:test:/"))
}

func TestRedisCacheExpires(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, Page{Key: "/", Kind: "index", Body: []byte("home")}))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDecodeError(t *testing.T) {
	c, mr := newTestRedisCache(t, 0)
	require.NoError(t, mr.Set("spacetravelling:test:/", "not json"))
	_, _, err := c.Get(context.Background(), "/")
	assert.ErrorContains(t, err, "redis decode")
}
