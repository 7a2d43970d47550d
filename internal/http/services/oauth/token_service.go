package oauth

import (
	"context"
	"errors"
	"strings"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	"github.com/dropDatabas3/codeflow/internal/identity"
	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	"github.com/dropDatabas3/codeflow/internal/store"
)

const GrantTypeAuthorizationCode = "authorization_code"

// Errors for token, revoke e introspect
var (
	ErrMissingGrantType     = errors.New("grant_type required")
	ErrUnsupportedGrantType = errors.New("unsupported grant_type")
	ErrMissingCode          = errors.New("code required")
	ErrMissingToken         = errors.New("token required")
	ErrInvalidClient        = errors.New("client authentication failed")
	ErrInvalidGrant         = errors.New("invalid authorization code")
	ErrTokenIssue           = errors.New("access token could not be issued")
)

type TokenService interface {
	// Exchange canjea un authorization code por un access token.
	Exchange(ctx context.Context, req dto.TokenRequest) (dto.TokenResponse, error)
	// Revoke RFC 7009: tokens desconocidos o de otro client no son error.
	Revoke(ctx context.Context, req dto.RevokeRequest) error
	// Introspect RFC 7662.
	Introspect(ctx context.Context, creds dto.ClientCredentials, token string) (dto.IntrospectResponse, error)
}

type TokenDeps struct {
	Clients identity.ClientRegistry
	Codes   store.CodeStore
	Tokens  store.TokenStore
}

type tokenService struct {
	clients identity.ClientRegistry
	codes   store.CodeStore
	tokens  store.TokenStore
}

func NewTokenService(d TokenDeps) TokenService {
	return &tokenService{clients: d.Clients, codes: d.Codes, tokens: d.Tokens}
}

func (s *tokenService) Exchange(ctx context.Context, req dto.TokenRequest) (dto.TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.Exchange"), logger.GrantType(req.GrantType))

	resp, result, err := s.exchange(ctx, req)
	metrics.TokenRequests.WithLabelValues(result).Inc()
	if err != nil {
		if result == "server_error" {
			log.Error("token exchange failed", logger.ClientID(req.ClientID), logger.Err(err))
		} else {
			log.Info("token request rejected", logger.ClientID(req.ClientID), logger.String("result", result))
		}
		return dto.TokenResponse{}, err
	}
	log.Info("access token issued", logger.ClientID(req.ClientID), logger.String("scope", resp.Scope))
	return resp, nil
}

func (s *tokenService) exchange(ctx context.Context, req dto.TokenRequest) (dto.TokenResponse, string, error) {
	switch req.GrantType {
	case "":
		return dto.TokenResponse{}, "invalid_request", ErrMissingGrantType
	case GrantTypeAuthorizationCode:
	default:
		return dto.TokenResponse{}, "unsupported_grant_type", ErrUnsupportedGrantType
	}

	// autenticar antes de tocar el code: un secret incorrecto no lo consume
	if _, err := s.clients.Authenticate(ctx, req.ClientID, req.ClientSecret); err != nil {
		return dto.TokenResponse{}, "invalid_client", ErrInvalidClient
	}

	if req.Code == "" {
		return dto.TokenResponse{}, "invalid_request", ErrMissingCode
	}

	code, err := s.codes.Redeem(ctx, req.Code, req.ClientID, req.RedirectURI)
	if err != nil {
		reason := redeemReason(err)
		metrics.RedeemFailures.WithLabelValues(reason).Inc()
		if reason == "backend" {
			logger.From(ctx).Error("code store failure", logger.Op("TokenService.Exchange"), logger.Err(err))
		} else {
			logger.From(ctx).Debug("code redemption rejected", logger.String("reason", reason), logger.Secret("code", req.Code))
		}
		return dto.TokenResponse{}, "invalid_grant", ErrInvalidGrant
	}

	tok, err := s.tokens.Issue(ctx, store.IssueTokenParams{
		ClientID: code.ClientID,
		Subject:  code.Subject,
		Scope:    code.Scope,
	})
	if err != nil {
		return dto.TokenResponse{}, "server_error", errors.Join(ErrTokenIssue, err)
	}

	return dto.TokenResponse{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(tok.ExpiresAt.Sub(tok.IssuedAt).Seconds()),
		Scope:       strings.Join(tok.Scope, " "),
	}, "ok", nil
}

func redeemReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrExpired):
		return "expired"
	case errors.Is(err, store.ErrAlreadyConsumed):
		return "already_consumed"
	case errors.Is(err, store.ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, store.ErrRedirectMismatch):
		return "redirect_mismatch"
	default:
		return "backend"
	}
}

func (s *tokenService) Revoke(ctx context.Context, req dto.RevokeRequest) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.Revoke"))

	if _, err := s.clients.Authenticate(ctx, req.ClientID, req.ClientSecret); err != nil {
		return ErrInvalidClient
	}
	if req.Token == "" {
		return ErrMissingToken
	}

	tok, err := s.tokens.Validate(ctx, req.Token)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	if tok.ClientID != req.ClientID {
		log.Warn("revoke for token of another client ignored", logger.ClientID(req.ClientID))
		return nil
	}
	if err := s.tokens.Revoke(ctx, req.Token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	log.Info("access token revoked", logger.ClientID(req.ClientID), logger.Subject(tok.Subject))
	return nil
}

func (s *tokenService) Introspect(ctx context.Context, creds dto.ClientCredentials, token string) (dto.IntrospectResponse, error) {
	if _, err := s.clients.Authenticate(ctx, creds.ClientID, creds.ClientSecret); err != nil {
		return dto.IntrospectResponse{}, ErrInvalidClient
	}
	if token == "" {
		return dto.IntrospectResponse{}, ErrMissingToken
	}

	tok, err := s.tokens.Validate(ctx, token)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		return dto.IntrospectResponse{Active: false}, nil
	}
	if err != nil {
		return dto.IntrospectResponse{}, err
	}
	return dto.IntrospectResponse{
		Active:    true,
		Scope:     strings.Join(tok.Scope, " "),
		ClientID:  tok.ClientID,
		Username:  tok.Subject,
		Subject:   tok.Subject,
		TokenType: "bearer",
		ExpiresAt: tok.ExpiresAt.Unix(),
		IssuedAt:  tok.IssuedAt.Unix(),
	}, nil
}
