package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/codeflow/internal/cache"
	dto "github.com/dropDatabas3/codeflow/internal/http/dto/client"
	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
)

const cacheKeyPrefixSession = "session:"

// FlowState estado de la sesión en el client.
type FlowState string

const (
	StateAnonymous              FlowState = "anonymous"
	StateAuthorizationRequested FlowState = "authorization_requested"
	StateCodeReceived           FlowState = "code_received"
	StateAuthenticated          FlowState = "authenticated"
	StateExpired                FlowState = "expired"
	StateLoggedOut              FlowState = "logged_out"
)

// CachedToken copia del access token que guarda el client.
type CachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Scope       []string  `json:"scope"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Session struct {
	ID        string       `json:"id"`
	State     FlowState    `json:"state"`
	Token     *CachedToken `json:"token,omitempty"`
	Profile   *dto.Profile `json:"profile,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// sessions persiste Session como JSON; la key es el hash del id de la cookie.
type sessions struct {
	c   cache.Client
	ttl time.Duration
}

func sessionKey(id string) string { return cacheKeyPrefixSession + tokens.Hash(id) }

func (s sessions) get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, cache.ErrNotFound
	}
	raw, err := s.c.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s sessions) put(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, sessionKey(sess.ID), string(b), s.ttl)
}

func (s sessions) delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, sessionKey(id))
}
