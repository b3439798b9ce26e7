package cache

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWithClient(client, time.Hour), mr
}

func TestRedis_PutGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	mask := image.NewGray(image.Rect(0, 0, 4, 3))
	mask.SetGray(1, 1, color.Gray{Y: 255})

	key := "mask:abc:upper"
	require.NoError(t, c.Put(ctx, key, mask))
	require.True(t, mr.Exists("catvton:"+key))
	require.Equal(t, time.Hour, mr.TTL("catvton:"+key))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mask.Bounds(), got.Bounds())
	r, _, _, _ := got.At(1, 1).RGBA()
	require.Equal(t, uint32(0xffff), r)
}

func TestRedis_Miss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "mask:none:upper")
	require.NoError(t, err)
	require.False(t, ok)

	mr.Set("catvton:pose:bad:1024:parula", "not a png")
	_, ok, err = c.Get(ctx, "pose:bad:1024:parula")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "mask:x:upper")
	require.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, 0)
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var c Nop
	require.NoError(t, c.Put(context.Background(), "k", image.NewGray(image.Rect(0, 0, 1, 1))))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}
