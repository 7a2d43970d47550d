// Package oauth contiene los services del authorization server: authorize/consent,
// token, userinfo, revoke e introspect.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/dropDatabas3/codeflow/internal/cache"
	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	"github.com/dropDatabas3/codeflow/internal/identity"
	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
	"github.com/dropDatabas3/codeflow/internal/store"
)

const cacheKeyPrefixConsent = "consent:"

const defaultConsentTTL = 5 * time.Minute

// Errors for authorize flow
var (
	ErrUnsupportedResponseType = errors.New("response_type must be code")
	ErrUnknownClient           = errors.New("unknown client_id")
	ErrInvalidRedirect         = errors.New("redirect_uri not registered")
	ErrRedirectRequired        = errors.New("redirect_uri required: client has several registered")
	ErrInvalidScope            = errors.New("scope not allowed")
	ErrLoginFailed             = errors.New("invalid resource owner credentials")
	ErrTicketNotFound          = errors.New("consent ticket not found or already used")
)

// Authorization es una solicitud ya validada: client existe, redirect_uri registrado.
type Authorization struct {
	Client      identity.Client
	RedirectURI string
	Scope       []string
	State       string
}

// AuthorizeService maneja el authorization endpoint y la decisión del resource owner.
type AuthorizeService interface {
	// Validate aplica las reglas de /authorize. Con ErrInvalidScope la Authorization
	// devuelta ya trae un redirect_uri confiable para redirigir el error.
	Validate(ctx context.Context, req dto.AuthorizeRequest) (Authorization, error)
	// Authenticate verifica credenciales y emite un consent ticket de un solo uso.
	Authenticate(ctx context.Context, req dto.LoginRequest) (ticket string, a Authorization, err error)
	// Ticket consume el ticket (approve o deny lo gastan igual).
	Ticket(ctx context.Context, ticket string) (dto.ConsentTicket, error)
	// Approve emite el code y arma redirect_uri?code=...&state=...
	Approve(ctx context.Context, req dto.ApproveRequest) (string, error)
	// Deny arma redirect_uri?error=access_denied&state=...
	Deny(ctx context.Context, req dto.DenyRequest) (string, error)
	// ErrorRedirect redirect con un error OAuth arbitrario (invalid_scope).
	ErrorRedirect(redirectURI, code, state string) (string, error)
	Scopes() ScopeCatalog
}

type AuthorizeDeps struct {
	Clients    identity.ClientRegistry
	Users      identity.UserStore
	Codes      store.CodeStore
	Cache      cache.Client
	Scopes     ScopeCatalog
	ConsentTTL time.Duration
}

type authorizeService struct {
	clients    identity.ClientRegistry
	users      identity.UserStore
	codes      store.CodeStore
	cache      cache.Client
	scopes     ScopeCatalog
	consentTTL time.Duration
}

func NewAuthorizeService(d AuthorizeDeps) AuthorizeService {
	ttl := d.ConsentTTL
	if ttl <= 0 {
		ttl = defaultConsentTTL
	}
	return &authorizeService{
		clients:    d.Clients,
		users:      d.Users,
		codes:      d.Codes,
		cache:      d.Cache,
		scopes:     d.Scopes,
		consentTTL: ttl,
	}
}

func (s *authorizeService) Scopes() ScopeCatalog { return s.scopes }

func (s *authorizeService) Validate(ctx context.Context, req dto.AuthorizeRequest) (Authorization, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Validate"))

	if req.ResponseType != "code" {
		return Authorization{}, ErrUnsupportedResponseType
	}

	client, err := s.clients.Lookup(ctx, req.ClientID)
	if err != nil {
		log.Debug("unknown client", logger.ClientID(req.ClientID))
		return Authorization{}, ErrUnknownClient
	}

	redirect, err := client.ResolveRedirect(req.RedirectURI)
	switch {
	case errors.Is(err, identity.ErrRedirectAmbiguous):
		return Authorization{}, ErrRedirectRequired
	case err != nil:
		log.Warn("redirect_uri not registered", logger.ClientID(client.ID), logger.String("redirect_uri", req.RedirectURI))
		return Authorization{}, ErrInvalidRedirect
	}

	a := Authorization{Client: client, RedirectURI: redirect, Scope: ParseScope(req.Scope), State: req.State}
	if !s.scopes.Known(a.Scope) || !client.AllowsScopes(a.Scope) {
		log.Debug("scope rejected", logger.ClientID(client.ID), logger.Scope(a.Scope))
		return a, ErrInvalidScope
	}
	return a, nil
}

func (s *authorizeService) Authenticate(ctx context.Context, req dto.LoginRequest) (string, Authorization, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Authenticate"))

	// hidden fields vienen del navegador: se revalida todo
	a, err := s.Validate(ctx, req.AuthorizeRequest)
	if err != nil {
		return "", a, err
	}

	user, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		log.Info("login failed", logger.ClientID(a.Client.ID), logger.Masked("username", req.Username))
		return "", a, ErrLoginFailed
	}

	ticket, err := tokens.Generate(tokens.TicketBytes)
	if err != nil {
		return "", a, err
	}
	b, _ := json.Marshal(dto.ConsentTicket{
		ClientID:    a.Client.ID,
		RedirectURI: a.RedirectURI,
		Scope:       a.Scope,
		State:       a.State,
		Subject:     user.Username,
	})
	if err := s.cache.Set(ctx, cacheKeyPrefixConsent+tokens.Hash(ticket), string(b), s.consentTTL); err != nil {
		return "", a, err
	}
	log.Info("resource owner authenticated", logger.ClientID(a.Client.ID), logger.Subject(user.Username))
	return ticket, a, nil
}

func (s *authorizeService) Ticket(ctx context.Context, ticket string) (dto.ConsentTicket, error) {
	if ticket == "" {
		return dto.ConsentTicket{}, ErrTicketNotFound
	}
	raw, err := s.cache.Take(ctx, cacheKeyPrefixConsent+tokens.Hash(ticket))
	if cache.IsNotFound(err) {
		return dto.ConsentTicket{}, ErrTicketNotFound
	}
	if err != nil {
		return dto.ConsentTicket{}, err
	}
	var t dto.ConsentTicket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return dto.ConsentTicket{}, err
	}
	return t, nil
}

func (s *authorizeService) Approve(ctx context.Context, req dto.ApproveRequest) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Approve"))

	granted := req.Scope
	if req.GrantedScope != nil {
		granted = Intersect(req.Scope, req.GrantedScope)
	}

	code, _, err := s.codes.Issue(ctx, store.IssueCodeParams{
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		Scope:       granted,
		Subject:     req.Subject,
	})
	if err != nil {
		return "", err
	}
	metrics.CodesIssued.WithLabelValues(req.ClientID).Inc()
	log.Info("authorization code issued",
		logger.ClientID(req.ClientID), logger.Subject(req.Subject), logger.Scope(granted), logger.Secret("code", code))

	return helpers.AppendQuery(req.RedirectURI, url.Values{"code": {code}, "state": {req.State}})
}

func (s *authorizeService) Deny(ctx context.Context, req dto.DenyRequest) (string, error) {
	logger.From(ctx).Info("authorization denied", logger.Layer("service"), logger.Op("AuthorizeService.Deny"))
	return s.ErrorRedirect(req.RedirectURI, "access_denied", req.State)
}

func (s *authorizeService) ErrorRedirect(redirectURI, code, state string) (string, error) {
	return helpers.AppendQuery(redirectURI, url.Values{"error": {code}, "state": {state}})
}
