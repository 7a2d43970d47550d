package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
)

// Redeem en un solo script: Redis ejecuta los scripts de forma serial, así que el
// check y el HSET consumed no se intercalan con otro redeem.
// Devuelve {status} o {"ok", campo, valor, ...}.
var redeemScript = redis.NewScript(`
local h = redis.call('HGETALL', KEYS[1])
if #h == 0 then return {'not_found'} end
local f = {}
for i = 1, #h, 2 do f[h[i]] = h[i + 1] end
if tonumber(ARGV[1]) > tonumber(f['expires_at']) then return {'expired'} end
if f['consumed'] == '1' then return {'already_consumed'} end
if f['client_id'] ~= ARGV[2] then return {'client_mismatch'} end
if ARGV[3] ~= '' and f['redirect_uri'] ~= ARGV[3] then return {'redirect_mismatch'} end
redis.call('HSET', KEYS[1], 'consumed', '1')
local out = {'ok'}
for i = 1, #h do out[#out + 1] = h[i] end
return out
`)

var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'revoked', '1')
return 1
`)

var redeemStatus = map[string]error{
	"not_found":         ErrNotFound,
	"expired":           ErrExpired,
	"already_consumed":  ErrAlreadyConsumed,
	"client_mismatch":   ErrClientMismatch,
	"redirect_mismatch": ErrRedirectMismatch,
}

// Redis agrupa los tres registros sobre un cliente compartido.
type Redis struct {
	States *RedisStateStore
	Codes  *RedisCodeStore
	Tokens *RedisTokenStore
}

func NewRedis(rdb *redis.Client, prefix string, opts Options) *Redis {
	opts = opts.withDefaults()
	k := keyer(prefix)
	return &Redis{
		States: &RedisStateStore{rdb: rdb, key: k, opts: opts},
		Codes:  &RedisCodeStore{rdb: rdb, key: k, opts: opts},
		Tokens: &RedisTokenStore{rdb: rdb, key: k, opts: opts},
	}
}

type keyer string

func (p keyer) of(kind, raw string) string {
	if p == "" {
		return kind + ":" + tokens.Hash(raw)
	}
	return string(p) + ":" + kind + ":" + tokens.Hash(raw)
}

// Los timestamps van en unix ms: Lua usa doubles y los ns no entran en 2^53.
func ms(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func fromMs(s string) time.Time {
	n, _ := strconv.ParseInt(s, 10, 64)
	return time.UnixMilli(n)
}

// ---- states ----

type RedisStateStore struct {
	rdb  *redis.Client
	key  keyer
	opts Options
}

func (s *RedisStateStore) Generate(ctx context.Context, sessionID string) (string, error) {
	raw, err := tokens.Generate(tokens.StateBytes)
	if err != nil {
		return "", err
	}
	now := s.opts.Now()
	b, _ := json.Marshal(PendingState{SessionID: sessionID, CreatedAt: now, ExpiresAt: now.Add(s.opts.StateTTL)})
	ok, err := s.rdb.SetNX(ctx, s.key.of("state", raw), b, s.opts.StateTTL).Result()
	if err != nil {
		return "", fmt.Errorf("store: save state: %w", err)
	}
	if !ok {
		return "", errors.New("store: state collision")
	}
	return raw, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrNotFound
	}
	b, err := s.rdb.GetDel(ctx, s.key.of("state", state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: consume state: %w", err)
	}
	var ps PendingState
	if err := json.Unmarshal(b, &ps); err != nil {
		return "", fmt.Errorf("store: decode state: %w", err)
	}
	if expired(s.opts.Now(), ps.ExpiresAt) {
		return "", ErrNotFound
	}
	return ps.SessionID, nil
}

// ---- codes ----

type RedisCodeStore struct {
	rdb  *redis.Client
	key  keyer
	opts Options
}

func (s *RedisCodeStore) Issue(ctx context.Context, p IssueCodeParams) (string, AuthorizationCode, error) {
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
	k := s.key.of("code", raw)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k,
		"client_id", ac.ClientID,
		"redirect_uri", ac.RedirectURI,
		"scope", joinScope(ac.Scope),
		"subject", ac.Subject,
		"issued_at", ms(ac.IssuedAt),
		"expires_at", ms(ac.ExpiresAt),
		"consumed", "0",
	)
	pipe.Expire(ctx, k, s.opts.CodeTTL+evictGrace)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", AuthorizationCode{}, fmt.Errorf("store: save code: %w", err)
	}
	return raw, ac, nil
}

func (s *RedisCodeStore) Redeem(ctx context.Context, code, clientID, redirectURI string) (AuthorizationCode, error) {
	if code == "" {
		return AuthorizationCode{}, ErrNotFound
	}
	res, err := redeemScript.Run(ctx, s.rdb,
		[]string{s.key.of("code", code)},
		ms(s.opts.Now()), clientID, redirectURI,
	).StringSlice()
	if err != nil {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: %w", err)
	}
	if len(res) == 0 {
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: empty reply")
	}
	if res[0] != "ok" {
		if e, ok := redeemStatus[res[0]]; ok {
			return AuthorizationCode{}, e
		}
		return AuthorizationCode{}, fmt.Errorf("store: redeem code: unexpected status %q", res[0])
	}
	f := pairs(res[1:])
	return AuthorizationCode{
		ClientID:    f["client_id"],
		RedirectURI: f["redirect_uri"],
		Scope:       splitScope(f["scope"]),
		Subject:     f["subject"],
		IssuedAt:    fromMs(f["issued_at"]),
		ExpiresAt:   fromMs(f["expires_at"]),
		Consumed:    true,
	}, nil
}

func pairs(kv []string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// ---- tokens ----

type RedisTokenStore struct {
	rdb  *redis.Client
	key  keyer
	opts Options
}

func (s *RedisTokenStore) Issue(ctx context.Context, p IssueTokenParams) (AccessToken, error) {
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
	k := s.key.of("token", raw)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k,
		"client_id", at.ClientID,
		"subject", at.Subject,
		"scope", joinScope(at.Scope),
		"issued_at", ms(at.IssuedAt),
		"expires_at", ms(at.ExpiresAt),
		"revoked", "0",
	)
	pipe.Expire(ctx, k, s.opts.TokenTTL+evictGrace)
	if _, err := pipe.Exec(ctx); err != nil {
		return AccessToken{}, fmt.Errorf("store: save token: %w", err)
	}
	at.Token = raw
	return at, nil
}

func (s *RedisTokenStore) Validate(ctx context.Context, token string) (AccessToken, error) {
	if token == "" {
		return AccessToken{}, ErrNotFound
	}
	now := s.opts.Now()
	if err := s.opts.Minter.Verify(token, now); err != nil {
		return AccessToken{}, ErrNotFound
	}
	k := s.key.of("token", token)
	f, err := s.rdb.HGetAll(ctx, k).Result()
	if err != nil {
		return AccessToken{}, fmt.Errorf("store: load token: %w", err)
	}
	if len(f) == 0 || f["revoked"] == "1" {
		return AccessToken{}, ErrNotFound
	}
	at := AccessToken{
		Token:     token,
		ClientID:  f["client_id"],
		Subject:   f["subject"],
		Scope:     splitScope(f["scope"]),
		IssuedAt:  fromMs(f["issued_at"]),
		ExpiresAt: fromMs(f["expires_at"]),
	}
	if expired(now, at.ExpiresAt) {
		_ = s.rdb.Del(ctx, k).Err()
		return AccessToken{}, ErrExpired
	}
	return at, nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	n, err := revokeScript.Run(ctx, s.rdb, []string{s.key.of("token", token)}).Int()
	if err != nil {
		return fmt.Errorf("store: revoke token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
