package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

// Stores es lo que consumen los services: los tres registros más el ciclo de vida
// del backend que los respalda.
type Stores struct {
	Driver string
	States StateStore
	Codes  CodeStore
	Tokens TokenStore

	ping    func(ctx context.Context) error
	closers []func()
	sweeper Sweeper
}

// Sweeper purga entradas vencidas en backends sin TTL nativo.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type Config struct {
	Driver string // memory | redis | postgres
	DSN    string // postgres
	Redis  *redis.Client
	Prefix string // redis
}

// Open construye los registros para el driver pedido. Con redis el cliente viene ya
// conectado (se comparte con cache y rate limiter) y Stores no lo cierra.
func Open(ctx context.Context, cfg Config, opts Options) (*Stores, error) {
	switch cfg.Driver {
	case "", "memory":
		m := NewMemory(opts)
		return &Stores{
			Driver: "memory",
			States: m.States, Codes: m.Codes, Tokens: m.Tokens,
			ping: func(context.Context) error { return nil },
		}, nil

	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("store: redis driver requires a client")
		}
		r := NewRedis(cfg.Redis, cfg.Prefix, opts)
		return &Stores{
			Driver: "redis",
			States: r.States, Codes: r.Codes, Tokens: r.Tokens,
			ping: func(ctx context.Context) error { return cfg.Redis.Ping(ctx).Err() },
		}, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: postgres pool: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: postgres ping: %w", err)
		}
		pg := NewPostgres(pool, opts)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Stores{
			Driver: "postgres",
			States: pg.States, Codes: pg.Codes, Tokens: pg.Tokens,
			ping:    pool.Ping,
			closers: []func(){pool.Close},
			sweeper: pg,
		}, nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}

func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Stores) Close() {
	for _, c := range s.closers {
		c()
	}
}

// RunSweeper bloquea hasta que ctx termine, purgando cada interval.
// No hace nada si el backend expira solo (memory, redis).
func (s *Stores) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.sweeper == nil || interval <= 0 {
		return
	}
	log := logger.Named("store.sweeper")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.sweeper.Sweep(ctx)
			if err != nil {
				log.Warn("sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("swept expired rows", zap.Int64("rows", n))
			}
		}
	}
}
