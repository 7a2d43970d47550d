// Package store contiene los registros del protocolo: pending states, authorization
// codes y access tokens. Cada backend (memory, redis, postgres) garantiza que las
// operaciones mutantes sobre una misma key son atómicas.
//
// Las keys son sha256(raw) en base64url; el valor crudo sólo se devuelve una vez al
// emitirlo.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("store: not found")
	ErrExpired          = errors.New("store: expired")
	ErrAlreadyConsumed  = errors.New("store: already consumed")
	ErrClientMismatch   = errors.New("store: client_id mismatch")
	ErrRedirectMismatch = errors.New("store: redirect_uri mismatch")
)

// Defaults de vida útil.
const (
	DefaultStateTTL = 10 * time.Minute
	DefaultCodeTTL  = 10 * time.Minute
	DefaultTokenTTL = 30 * time.Minute
)

// evictGrace mantiene entradas consumidas/expiradas un rato más allá de su
// expiración para que un replay vea ErrAlreadyConsumed/ErrExpired y no ErrNotFound.
const evictGrace = time.Minute

type PendingState struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthorizationCode struct {
	ClientID    string
	RedirectURI string
	Scope       []string
	Subject     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Consumed    bool
}

type AccessToken struct {
	// Token es el valor crudo; sólo presente en lo que devuelven Issue y Validate.
	Token     string
	ClientID  string
	Subject   string
	Scope     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

type IssueCodeParams struct {
	ClientID    string
	RedirectURI string
	Scope       []string
	Subject     string
}

type IssueTokenParams struct {
	ClientID string
	Subject  string
	Scope    []string
}

// StateStore correlaciona el state CSRF con la sesión del client.
type StateStore interface {
	// Generate crea un state de un solo uso ligado a sessionID.
	Generate(ctx context.Context, sessionID string) (string, error)
	// Consume elimina y devuelve la sesión ligada. ErrNotFound si no existe,
	// ya fue consumido o expiró.
	Consume(ctx context.Context, state string) (string, error)
}

// CodeStore registra authorization codes de un solo uso.
type CodeStore interface {
	Issue(ctx context.Context, p IssueCodeParams) (string, AuthorizationCode, error)
	// Redeem verifica expiración, consumo, client_id y redirect_uri (si viene no vacío)
	// y marca consumido, todo de forma indivisible. Entre N llamadas concurrentes
	// válidas exactamente una gana.
	Redeem(ctx context.Context, code, clientID, redirectURI string) (AuthorizationCode, error)
}

// TokenStore registra access tokens con expiración y revocación.
type TokenStore interface {
	Issue(ctx context.Context, p IssueTokenParams) (AccessToken, error)
	// Validate: ErrNotFound para desconocido o revocado, ErrExpired si venció.
	Validate(ctx context.Context, token string) (AccessToken, error)
	Revoke(ctx context.Context, token string) error
}

// Options comunes a todos los backends.
type Options struct {
	StateTTL time.Duration
	CodeTTL  time.Duration
	TokenTTL time.Duration
	// Now es el reloj contra el que se evalúa la expiración. Default time.Now.
	Now func() time.Time
	// Minter define el formato del access token. Default OpaqueMinter.
	Minter Minter
}

func (o Options) withDefaults() Options {
	if o.StateTTL <= 0 {
		o.StateTTL = DefaultStateTTL
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = DefaultCodeTTL
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = DefaultTokenTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Minter == nil {
		o.Minter = OpaqueMinter{}
	}
	return o
}

// expired: estrictamente después de expiresAt.
func expired(now, expiresAt time.Time) bool {
	return now.After(expiresAt)
}

// checkRedeem es la regla de redención compartida por memory y postgres.
// El orden importa: un code vencido es ErrExpired aunque ya se haya consumido.
func checkRedeem(c AuthorizationCode, now time.Time, clientID, redirectURI string) error {
	switch {
	case expired(now, c.ExpiresAt):
		return ErrExpired
	case c.Consumed:
		return ErrAlreadyConsumed
	case c.ClientID != clientID:
		return ErrClientMismatch
	case redirectURI != "" && c.RedirectURI != redirectURI:
		return ErrRedirectMismatch
	}
	return nil
}

func validateCodeParams(p IssueCodeParams) error {
	if p.ClientID == "" || p.RedirectURI == "" || p.Subject == "" {
		return errors.New("store: client_id, redirect_uri and subject are required")
	}
	return nil
}

func joinScope(s []string) string { return strings.Join(s, " ") }

func splitScope(s string) []string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return []string{}
	}
	return f
}

func cloneScope(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
