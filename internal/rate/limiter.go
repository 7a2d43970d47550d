// Package rate implementa un limitador fixed-window por key (IP del client, client_id).
package rate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	Hits       int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// New elige backend: con cliente redis comparte la ventana entre réplicas.
func New(client *rdb.Client, prefix string, max int, window time.Duration) Limiter {
	if client != nil {
		return NewRedisLimiter(client, prefix, max, window)
	}
	return NewMemoryLimiter(max, window)
}

func decide(hits, max int64, retry time.Duration) Result {
	res := Result{Allowed: hits <= max, Hits: hits, Remaining: max - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = retry
	}
	return res
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	hits, err := l.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	// set expiry on first hit
	if hits == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
	}
	return decide(hits, l.Max, winStart.Add(l.Window).Sub(now)), nil
}

// MemoryLimiter misma ventana sobre go-cache, para un solo proceso.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration
	mu     sync.Mutex
	c      *gocache.Cache
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:    int64(max),
		Window: window,
		c:      gocache.New(window, 2*window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	l.mu.Lock()
	defer l.mu.Unlock()
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// primer hit de la ventana
		hits = 1
		l.c.Set(k, int64(1), l.Window)
	}
	return decide(hits, l.Max, winStart.Add(l.Window).Sub(now)), nil
}
