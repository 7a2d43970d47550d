package identity

import (
	"context"
	"errors"
	"slices"

	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
)

var (
	ErrClientNotFound     = errors.New("identity: client not found")
	ErrInvalidClientAuth  = errors.New("identity: invalid client credentials")
	ErrRedirectNotAllowed = errors.New("identity: redirect_uri not registered")
	ErrRedirectAmbiguous  = errors.New("identity: redirect_uri required")
)

// Client es un RegisteredClient: inmutable después de cargar.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
	// AllowedScopes vacío: cualquier scope que el servidor conozca.
	AllowedScopes []string
}

// ResolveRedirect aplica la regla de redirect_uri: match exacto contra la lista; si
// viene vacío sólo se infiere cuando hay una única URI registrada.
func (c Client) ResolveRedirect(uri string) (string, error) {
	if uri == "" {
		if len(c.RedirectURIs) == 1 {
			return c.RedirectURIs[0], nil
		}
		return "", ErrRedirectAmbiguous
	}
	if slices.Contains(c.RedirectURIs, uri) {
		return uri, nil
	}
	return "", ErrRedirectNotAllowed
}

// AllowsScopes true si todos los scopes pedidos están permitidos para el client.
func (c Client) AllowsScopes(scope []string) bool {
	if len(c.AllowedScopes) == 0 {
		return true
	}
	for _, s := range scope {
		if !slices.Contains(c.AllowedScopes, s) {
			return false
		}
	}
	return true
}

type ClientRegistry interface {
	Lookup(ctx context.Context, clientID string) (Client, error)
	// Authenticate compara el secret en tiempo constante.
	Authenticate(ctx context.Context, clientID, secret string) (Client, error)
}

type MemoryClientRegistry struct {
	clients map[string]Client
}

func NewMemoryClientRegistry(clients []Client) (*MemoryClientRegistry, error) {
	r := &MemoryClientRegistry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c.ID == "" || len(c.RedirectURIs) == 0 {
			return nil, errors.New("identity: client requires client_id and at least one redirect_uri")
		}
		c.RedirectURIs = slices.Clone(c.RedirectURIs)
		c.AllowedScopes = slices.Clone(c.AllowedScopes)
		r.clients[c.ID] = c
	}
	return r, nil
}

func (r *MemoryClientRegistry) Lookup(_ context.Context, clientID string) (Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (r *MemoryClientRegistry) Authenticate(ctx context.Context, clientID, secret string) (Client, error) {
	c, err := r.Lookup(ctx, clientID)
	if err != nil {
		// comparar igual para no filtrar por tiempo qué client_id existe
		_ = tokens.Equal(secret, "\x00unknown-client\x00")
		return Client{}, ErrInvalidClientAuth
	}
	if secret == "" || !tokens.Equal(secret, c.Secret) {
		return Client{}, ErrInvalidClientAuth
	}
	return c, nil
}
