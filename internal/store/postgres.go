package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
	migrations "github.com/dropDatabas3/codeflow/migrations/postgres"
)

// Postgres agrupa los tres registros sobre un pool pgx.
type Postgres struct {
	pool   *pgxpool.Pool
	opts   Options
	States *PostgresStateStore
	Codes  *PostgresCodeStore
	Tokens *PostgresTokenStore
}

func NewPostgres(pool *pgxpool.Pool, opts Options) *Postgres {
	opts = opts.withDefaults()
	return &Postgres{
		pool:   pool,
		opts:   opts,
		States: &PostgresStateStore{pool: pool, opts: opts},
		Codes:  &PostgresCodeStore{pool: pool, opts: opts},
		Tokens: &PostgresTokenStore{pool: pool, opts: opts},
	}
}

// Migrate aplica el schema embebido. Los scripts son idempotentes (IF NOT EXISTS).
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.PostgresFS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := migrations.PostgresFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("store: migrate %s: %w", name, err)
		}
	}
	return nil
}

// Sweep borra filas vencidas (más allá del grace). Devuelve cuántas eliminó.
func (p *Postgres) Sweep(ctx context.Context) (int64, error) {
	cutoff := p.opts.Now().Add(-evictGrace)
	var total int64
	for _, q := range []string{
		`DELETE FROM oauth_pending_state WHERE expires_at < $1`,
		`DELETE FROM oauth_authorization_code WHERE expires_at < $1`,
		`DELETE FROM oauth_access_token WHERE expires_at < $1`,
	} {
		tag, err := p.pool.Exec(ctx, q, cutoff)
		if err != nil {
			return total, fmt.Errorf("store: sweep: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// ---- states ----

type PostgresStateStore struct {
	pool *pgxpool.Pool
	opts Options
}

func (s *PostgresStateStore) Generate(ctx context.Context, sessionID string) (string, error) {
	raw, err := tokens.Generate(tokens.StateBytes)
	if err != nil {
		return "", err
	}
	now := s.opts.Now()
	const q = `INSERT INTO oauth_pending_state (state_hash, session_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, q, tokens.Hash(raw), sessionID, now, now.Add(s.opts.StateTTL)); err != nil {
		return "", fmt.Errorf("store: save state: %w", err)
	}
	return raw, nil
}

// Consume: DELETE ... RETURNING es check-and-delete en una sola sentencia.
func (s *PostgresStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrNotFound
	}
	const q = `DELETE FROM oauth_pending_state WHERE state_hash = $1 RETURNING session_id, expires_at`
	var sessionID string
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, q, tokens.Hash(state)).Scan(&sessionID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: consume state: %w", err)
	}
	if expired(s.opts.Now(), expiresAt) {
		return "", ErrNotFound
	}
	return sessionID, nil
}

// ---- codes ----

type PostgresCodeStore struct {
	pool *pgxpool.Pool
	opts Options
}

func (s *PostgresCodeStore) Issue(ctx context.Context, p IssueCodeParams) (string, AuthorizationCode, error) {
	if err := validateCodeParams(p); err != nil {
		return "", AuthorizationCode{}, err
	}
	raw, err := tokens.Generate(tokens.CodeBytes)
	if err != nil {
		return "", AuthorizationCode{}, err
	}
	now := s.opts.Now()
	ac := AuthorizationCode{
		ClientID:    p.ClientID,
		RedirectURI: p.RedirectURI,
		Scope:       cloneScope(p.Scope),
		Subject:     p.Subject,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.opts.CodeTTL),
	}
	const q = `
		INSERT INTO oauth_authorization_code (code_hash, client_id, redirect_uri, scope, subject, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, q, tokens.Hash(raw), ac.ClientID, ac.RedirectURI, ac.Scope, ac.Subject, ac.IssuedAt, ac.ExpiresAt)
	if err != nil {
		return "", AuthorizationCode{}, fmt.Errorf("store: save code: %w", err)
	}
	return raw, ac, nil
}

// Redeem toma el lock de fila (FOR UPDATE); un redeem concurrente espera al commit
// y luego ve consumed_at seteado.
func (s *PostgresCodeStore) Redeem(ctx context.Context, code, clientID, redirectURI string) (AuthorizationCode, error) {
	if code == "" {
		return AuthorizationCode{}, ErrNotFound
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: %w", err)
	}
	defer tx.Rollback(ctx)

	h := tokens.Hash(code)
	const sel = `
		SELECT client_id, redirect_uri, scope, subject, issued_at, expires_at, consumed_at
		FROM oauth_authorization_code
		WHERE code_hash = $1
		FOR UPDATE
	`
	var ac AuthorizationCode
	var consumedAt *time.Time
	err = tx.QueryRow(ctx, sel, h).Scan(&ac.ClientID, &ac.RedirectURI, &ac.Scope, &ac.Subject, &ac.IssuedAt, &ac.ExpiresAt, &consumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthorizationCode{}, ErrNotFound
	}
	if err != nil {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: %w", err)
	}
	ac.Consumed = consumedAt != nil

	now := s.opts.Now()
	if err := checkRedeem(ac, now, clientID, redirectURI); err != nil {
		return AuthorizationCode{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE oauth_authorization_code SET consumed_at = $2 WHERE code_hash = $1`, h, now); err != nil {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: %w", err)
	}
	ac.Consumed = true
	return ac, nil
}

// ---- tokens ----

type PostgresTokenStore struct {
	pool *pgxpool.Pool
	opts Options
}

func (s *PostgresTokenStore) Issue(ctx context.Context, p IssueTokenParams) (AccessToken, error) {
	now := s.opts.Now()
	at := AccessToken{
		ClientID:  p.ClientID,
		Subject:   p.Subject,
		Scope:     cloneScope(p.Scope),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.TokenTTL),
	}
	raw, err := s.opts.Minter.Mint(at)
	if err != nil {
		return AccessToken{}, err
	}
	const q = `
		INSERT INTO oauth_access_token (token_hash, client_id, subject, scope, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.pool.Exec(ctx, q, tokens.Hash(raw), at.ClientID, at.Subject, at.Scope, at.IssuedAt, at.ExpiresAt); err != nil {
		return AccessToken{}, fmt.Errorf("store: save token: %w", err)
	}
	at.Token = raw
	return at, nil
}

func (s *PostgresTokenStore) Validate(ctx context.Context, token string) (AccessToken, error) {
	if token == "" {
		return AccessToken{}, ErrNotFound
	}
	now := s.opts.Now()
	if err := s.opts.Minter.Verify(token, now); err != nil {
		return AccessToken{}, ErrNotFound
	}
	h := tokens.Hash(token)
	const q = `
		SELECT client_id, subject, scope, issued_at, expires_at, revoked_at
		FROM oauth_access_token
		WHERE token_hash = $1
	`
	at := AccessToken{Token: token}
	var revokedAt *time.Time
	err := s.pool.QueryRow(ctx, q, h).Scan(&at.ClientID, &at.Subject, &at.Scope, &at.IssuedAt, &at.ExpiresAt, &revokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccessToken{}, ErrNotFound
	}
	if err != nil {
		return AccessToken{}, fmt.Errorf("store: load token: %w", err)
	}
	if revokedAt != nil {
		return AccessToken{}, ErrNotFound
	}
	if expired(now, at.ExpiresAt) {
		_, _ = s.pool.Exec(ctx, `DELETE FROM oauth_access_token WHERE token_hash = $1`, h)
		return AccessToken{}, ErrExpired
	}
	return at, nil
}

func (s *PostgresTokenStore) Revoke(ctx context.Context, token string) error {
	const q = `UPDATE oauth_access_token SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, tokens.Hash(token), s.opts.Now())
	if err != nil {
		return fmt.Errorf("store: revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM oauth_access_token WHERE token_hash = $1)`, tokens.Hash(token)).Scan(&exists); err != nil {
			return fmt.Errorf("store: revoke token: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}
