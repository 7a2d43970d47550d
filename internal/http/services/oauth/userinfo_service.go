package oauth

import (
	"context"
	"errors"
	"maps"
	"slices"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	"github.com/dropDatabas3/codeflow/internal/identity"
	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	"github.com/dropDatabas3/codeflow/internal/store"
)

// ErrInvalidToken cubre token ausente, desconocido, vencido, revocado o subject borrado.
var ErrInvalidToken = errors.New("invalid access token")

type UserInfoService interface {
	UserInfo(ctx context.Context, bearer string) (dto.UserInfoResponse, error)
}

type UserInfoDeps struct {
	Tokens store.TokenStore
	Users  identity.UserStore
}

type userInfoService struct {
	tokens store.TokenStore
	users  identity.UserStore
}

func NewUserInfoService(d UserInfoDeps) UserInfoService {
	return &userInfoService{tokens: d.Tokens, users: d.Users}
}

func (s *userInfoService) UserInfo(ctx context.Context, bearer string) (dto.UserInfoResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("UserInfoService.UserInfo"))

	if bearer == "" {
		metrics.UserInfoRequests.WithLabelValues("missing_token").Inc()
		return dto.UserInfoResponse{}, ErrInvalidToken
	}

	tok, err := s.tokens.Validate(ctx, bearer)
	if err != nil {
		result := "invalid_token"
		if errors.Is(err, store.ErrExpired) {
			result = "expired"
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Error("token store failure", logger.Err(err))
		}
		metrics.UserInfoRequests.WithLabelValues(result).Inc()
		return dto.UserInfoResponse{}, ErrInvalidToken
	}

	user, err := s.users.Lookup(ctx, tok.Subject)
	if err != nil {
		log.Warn("token subject vanished", logger.Subject(tok.Subject), logger.ClientID(tok.ClientID))
		metrics.UserInfoRequests.WithLabelValues("unknown_subject").Inc()
		return dto.UserInfoResponse{}, ErrInvalidToken
	}

	metrics.UserInfoRequests.WithLabelValues("ok").Inc()
	return project(user, tok.Scope), nil
}

// project: username y email siempre; metadata sólo con el scope metadata.
func project(u identity.User, scope []string) dto.UserInfoResponse {
	out := dto.UserInfoResponse{Username: u.Username, Email: u.Email}
	if slices.Contains(scope, ScopeMetadata) {
		out.Metadata = maps.Clone(u.Metadata)
		if out.Metadata == nil {
			out.Metadata = map[string]string{}
		}
	}
	return out
}
