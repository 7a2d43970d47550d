package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
)

// Memory agrupa los tres registros in-process. go-cache acota la memoria (janitor);
// el mutex de cada registro serializa check+mutate.
type Memory struct {
	States *MemoryStateStore
	Codes  *MemoryCodeStore
	Tokens *MemoryTokenStore
}

func NewMemory(opts Options) *Memory {
	opts = opts.withDefaults()
	return &Memory{
		States: &MemoryStateStore{opts: opts, c: gocache.New(opts.StateTTL, time.Minute)},
		Codes:  &MemoryCodeStore{opts: opts, c: gocache.New(opts.CodeTTL+evictGrace, time.Minute)},
		Tokens: &MemoryTokenStore{opts: opts, c: gocache.New(opts.TokenTTL+evictGrace, time.Minute)},
	}
}

// ---- states ----

type MemoryStateStore struct {
	opts Options
	mu   sync.Mutex
	c    *gocache.Cache
}

func (s *MemoryStateStore) Generate(_ context.Context, sessionID string) (string, error) {
	raw, err := tokens.Generate(tokens.StateBytes)
	if err != nil {
		return "", err
	}
	now := s.opts.Now()
	ps := PendingState{SessionID: sessionID, CreatedAt: now, ExpiresAt: now.Add(s.opts.StateTTL)}
	s.c.Set(tokens.Hash(raw), ps, gocache.DefaultExpiration)
	return raw, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrNotFound
	}
	k := tokens.Hash(state)

	s.mu.Lock()
	v, ok := s.c.Get(k)
	if ok {
		s.c.Delete(k)
	}
	s.mu.Unlock()

	if !ok {
		return "", ErrNotFound
	}
	ps := v.(PendingState)
	if expired(s.opts.Now(), ps.ExpiresAt) {
		return "", ErrNotFound
	}
	return ps.SessionID, nil
}

// ---- codes ----

type MemoryCodeStore struct {
	opts Options
	mu   sync.Mutex
	c    *gocache.Cache
}

func (s *MemoryCodeStore) Issue(_ context.Context, p IssueCodeParams) (string, AuthorizationCode, error) {
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
	entry := ac
	s.c.Set(tokens.Hash(raw), &entry, gocache.DefaultExpiration)
	return raw, ac, nil
}

func (s *MemoryCodeStore) Redeem(_ context.Context, code, clientID, redirectURI string) (AuthorizationCode, error) {
	if code == "" {
		return AuthorizationCode{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(tokens.Hash(code))
	if !ok {
		return AuthorizationCode{}, ErrNotFound
	}
	entry := v.(*AuthorizationCode)
	if err := checkRedeem(*entry, s.opts.Now(), clientID, redirectURI); err != nil {
		return AuthorizationCode{}, err
	}
	entry.Consumed = true
	out := *entry
	out.Scope = cloneScope(entry.Scope)
	return out, nil
}

// ---- tokens ----

type MemoryTokenStore struct {
	opts Options
	mu   sync.Mutex
	c    *gocache.Cache
}

func (s *MemoryTokenStore) Issue(_ context.Context, p IssueTokenParams) (AccessToken, error) {
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
	entry := at
	s.c.Set(tokens.Hash(raw), &entry, gocache.DefaultExpiration)
	at.Token = raw
	return at, nil
}

func (s *MemoryTokenStore) Validate(_ context.Context, token string) (AccessToken, error) {
	if token == "" {
		return AccessToken{}, ErrNotFound
	}
	now := s.opts.Now()
	if err := s.opts.Minter.Verify(token, now); err != nil {
		return AccessToken{}, ErrNotFound
	}
	k := tokens.Hash(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(k)
	if !ok {
		return AccessToken{}, ErrNotFound
	}
	entry := v.(*AccessToken)
	if entry.Revoked {
		return AccessToken{}, ErrNotFound
	}
	if expired(now, entry.ExpiresAt) {
		s.c.Delete(k)
		return AccessToken{}, ErrExpired
	}
	out := *entry
	out.Scope = cloneScope(entry.Scope)
	out.Token = token
	return out, nil
}

func (s *MemoryTokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(tokens.Hash(token))
	if !ok {
		return ErrNotFound
	}
	v.(*AccessToken).Revoked = true
	return nil
}
