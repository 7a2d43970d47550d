package oauth

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/codeflow/internal/http/errors"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	svc "github.com/dropDatabas3/codeflow/internal/http/services/oauth"
)

// TokenController maneja /token, /revoke e /introspect.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token POST /token.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	if !parseTokenForm(w, r) {
		return
	}
	creds := clientCredentials(r)
	req := dto.TokenRequest{
		GrantType:    strings.TrimSpace(r.PostForm.Get("grant_type")),
		Code:         strings.TrimSpace(r.PostForm.Get("code")),
		RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		BasicAuth:    creds.BasicAuth,
	}

	resp, err := c.service.Exchange(r.Context(), req)
	if err != nil {
		httperrors.WriteError(w, r, mapTokenError(err, creds.BasicAuth))
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, resp)
}

// Revoke POST /revoke (RFC 7009).
func (c *TokenController) Revoke(w http.ResponseWriter, r *http.Request) {
	if !parseTokenForm(w, r) {
		return
	}
	creds := clientCredentials(r)
	err := c.service.Revoke(r.Context(), dto.RevokeRequest{
		ClientCredentials: creds,
		Token:             strings.TrimSpace(r.PostForm.Get("token")),
		TokenTypeHint:     r.PostForm.Get("token_type_hint"),
	})
	if err != nil {
		httperrors.WriteError(w, r, mapTokenError(err, creds.BasicAuth))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

// Introspect POST /introspect (RFC 7662).
func (c *TokenController) Introspect(w http.ResponseWriter, r *http.Request) {
	if !parseTokenForm(w, r) {
		return
	}
	creds := clientCredentials(r)
	out, err := c.service.Introspect(r.Context(), creds, strings.TrimSpace(r.PostForm.Get("token")))
	if err != nil {
		httperrors.WriteError(w, r, mapTokenError(err, creds.BasicAuth))
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, out)
}

func parseTokenForm(w http.ResponseWriter, r *http.Request) bool {
	if !helpers.HasFormBody(r) {
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("expected application/x-www-form-urlencoded body"))
		return false
	}
	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("malformed form body"))
		return false
	}
	return true
}

func mapTokenError(err error, basic bool) error {
	switch {
	case errors.Is(err, svc.ErrMissingGrantType):
		return httperrors.ErrInvalidRequest.WithDescription("grant_type is required")
	case errors.Is(err, svc.ErrUnsupportedGrantType):
		return httperrors.ErrUnsupportedGrantType
	case errors.Is(err, svc.ErrInvalidClient):
		if basic {
			return httperrors.ErrInvalidClient.WithChallenge(basicChallenge)
		}
		return httperrors.ErrInvalidClient
	case errors.Is(err, svc.ErrMissingCode):
		return httperrors.ErrInvalidRequest.WithDescription("code is required")
	case errors.Is(err, svc.ErrMissingToken):
		return httperrors.ErrInvalidRequest.WithDescription("token is required")
	case errors.Is(err, svc.ErrInvalidGrant):
		return httperrors.ErrInvalidGrant
	default:
		return httperrors.ErrServerError.WithCause(err)
	}
}
