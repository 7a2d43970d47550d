package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type backend struct {
	states StateStore
	codes  CodeStore
	tokens TokenStore
}

// backends arma memory y redis (miniredis) siempre; postgres sólo con STORAGE_DSN.
func backends(t *testing.T, clk *fakeClock) map[string]backend {
	t.Helper()
	opts := Options{Now: clk.Now}
	out := map[string]backend{}

	m := NewMemory(opts)
	out["memory"] = backend{m.States, m.Codes, m.Tokens}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	r := NewRedis(rdb, "t", opts)
	out["redis"] = backend{r.States, r.Codes, r.Tokens}

	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(pool.Close)
		pg := NewPostgres(pool, opts)
		require.NoError(t, pg.Migrate(context.Background()))
		out["postgres"] = backend{pg.States, pg.Codes, pg.Tokens}
	}
	return out
}

func issueCode(t *testing.T, cs CodeStore) string {
	t.Helper()
	code, ac, err := cs.Issue(context.Background(), IssueCodeParams{
		ClientID:    "client123",
		RedirectURI: "http://localhost:5001/callback",
		Scope:       []string{"profile", "email"},
		Subject:     "user",
	})
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.Equal(t, ac.IssuedAt.Add(DefaultCodeTTL), ac.ExpiresAt)
	return code
}

func TestStateGenerateConsume(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			st, err := b.states.Generate(ctx, "sess-1")
			require.NoError(t, err)

			sid, err := b.states.Consume(ctx, st)
			require.NoError(t, err)
			require.Equal(t, "sess-1", sid)

			// segundo consume: ya no existe
			_, err = b.states.Consume(ctx, st)
			require.ErrorIs(t, err, ErrNotFound)

			_, err = b.states.Consume(ctx, "never-issued")
			require.ErrorIs(t, err, ErrNotFound)
			_, err = b.states.Consume(ctx, "")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStateExpires(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			st, err := b.states.Generate(ctx, "sess-1")
			require.NoError(t, err)
			clk.Advance(DefaultStateTTL + time.Second)
			_, err = b.states.Consume(ctx, st)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStateConsumeRace(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			st, err := b.states.Generate(ctx, "sess-1")
			require.NoError(t, err)
			require.Equal(t, 1, race(16, func() error {
				_, err := b.states.Consume(ctx, st)
				return err
			}))
		})
	}
}

func TestRedeemSingleUse(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			code := issueCode(t, b.codes)

			ac, err := b.codes.Redeem(ctx, code, "client123", "http://localhost:5001/callback")
			require.NoError(t, err)
			require.True(t, ac.Consumed)
			require.Equal(t, "user", ac.Subject)
			require.ElementsMatch(t, []string{"profile", "email"}, ac.Scope)

			_, err = b.codes.Redeem(ctx, code, "client123", "http://localhost:5001/callback")
			require.ErrorIs(t, err, ErrAlreadyConsumed)
		})
	}
}

func TestRedeemBindings(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			code := issueCode(t, b.codes)

			_, err := b.codes.Redeem(ctx, code, "other-client", "")
			require.ErrorIs(t, err, ErrClientMismatch)

			_, err = b.codes.Redeem(ctx, code, "client123", "http://evil.example/cb")
			require.ErrorIs(t, err, ErrRedirectMismatch)

			// los fallos no consumen; redirect_uri vacío no se compara
			_, err = b.codes.Redeem(ctx, code, "client123", "")
			require.NoError(t, err)

			_, err = b.codes.Redeem(ctx, "unknown", "client123", "")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedeemAfterExpiry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			code := issueCode(t, b.codes)
			clk.Advance(DefaultCodeTTL)
			clk.Advance(time.Second)
			_, err := b.codes.Redeem(ctx, code, "client123", "http://localhost:5001/callback")
			require.ErrorIs(t, err, ErrExpired)
		})
	}
}

func TestRedeemExactlyAtExpiryStillValid(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(Options{Now: clk.Now})
	code := issueCode(t, m.Codes)
	clk.Advance(DefaultCodeTTL)
	_, err := m.Codes.Redeem(ctx, code, "client123", "")
	require.NoError(t, err)
}

func TestRedeemRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			code := issueCode(t, b.codes)
			var mu sync.Mutex
			var losers []error
			wins := race(32, func() error {
				_, err := b.codes.Redeem(ctx, code, "client123", "http://localhost:5001/callback")
				if err != nil {
					mu.Lock()
					losers = append(losers, err)
					mu.Unlock()
				}
				return err
			})
			require.Equal(t, 1, wins)
			for _, err := range losers {
				require.ErrorIs(t, err, ErrAlreadyConsumed)
			}
		})
	}
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			at, err := b.tokens.Issue(ctx, IssueTokenParams{ClientID: "client123", Subject: "user", Scope: []string{"profile"}})
			require.NoError(t, err)
			require.NotEmpty(t, at.Token)
			require.Equal(t, at.IssuedAt.Add(DefaultTokenTTL), at.ExpiresAt)

			got, err := b.tokens.Validate(ctx, at.Token)
			require.NoError(t, err)
			require.Equal(t, "user", got.Subject)
			require.Equal(t, "client123", got.ClientID)
			require.Equal(t, []string{"profile"}, got.Scope)

			require.NoError(t, b.tokens.Revoke(ctx, at.Token))
			_, err = b.tokens.Validate(ctx, at.Token)
			require.ErrorIs(t, err, ErrNotFound)

			require.ErrorIs(t, b.tokens.Revoke(ctx, "unknown"), ErrNotFound)
			_, err = b.tokens.Validate(ctx, "unknown")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTokenExpiresLazily(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	for name, b := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			at, err := b.tokens.Issue(ctx, IssueTokenParams{ClientID: "client123", Subject: "user"})
			require.NoError(t, err)
			clk.Advance(DefaultTokenTTL + time.Second)

			_, err = b.tokens.Validate(ctx, at.Token)
			require.ErrorIs(t, err, ErrExpired)
			// purgado en la lectura anterior
			_, err = b.tokens.Validate(ctx, at.Token)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: "memory"}, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	s.Close()

	_, err = Open(context.Background(), Config{Driver: "redis"}, Options{})
	require.Error(t, err)
	_, err = Open(context.Background(), Config{Driver: "etcd"}, Options{})
	require.Error(t, err)
}

// race lanza n goroutines a la vez y cuenta cuántas terminaron sin error.
func race(n int, fn func() error) int {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if fn() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	return wins
}
