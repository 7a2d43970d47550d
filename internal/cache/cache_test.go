package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Client{
		"memory": NewMemory("test"),
		"redis":  NewRedis(rdb, "test"),
	}
}

func TestClientContract(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			require.True(t, IsNotFound(err))

			require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
			v, err := c.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "v", v)

			v, err = c.Take(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "v", v)

			_, err = c.Take(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Set(ctx, "d", "x", 0))
			require.NoError(t, c.Delete(ctx, "d"))
			_, err = c.Get(ctx, "d")
			require.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, c.Delete(ctx, "d"))

			require.NoError(t, c.Ping(ctx))
		})
	}
}

func TestTakeIsSingleWinner(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "ticket", "payload", time.Minute))

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := c.Take(ctx, "ticket"); err == nil {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			require.Equal(t, int32(1), wins)
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "memcached"})
	require.Error(t, err)
}
