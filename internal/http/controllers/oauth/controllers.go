// Package oauth contiene los controllers HTTP del authorization server.
package oauth

import (
	"net/http"
	"net/url"
	"strings"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	svc "github.com/dropDatabas3/codeflow/internal/http/services/oauth"
	"github.com/dropDatabas3/codeflow/internal/jwt"
)

// Controllers agrupa todos los controllers del authorization server.
type Controllers struct {
	Authorize *AuthorizeController
	Token     *TokenController
	UserInfo  *UserInfoController
	JWKS      *JWKSController
}

type Services struct {
	Authorize svc.AuthorizeService
	Token     svc.TokenService
	UserInfo  svc.UserInfoService
}

// NewControllers issuer puede ser nil (token_format=opaque): JWKS queda nil.
func NewControllers(s Services, issuer *jwt.Issuer) *Controllers {
	c := &Controllers{
		Authorize: NewAuthorizeController(s.Authorize),
		Token:     NewTokenController(s.Token),
		UserInfo:  NewUserInfoController(s.UserInfo),
	}
	if issuer != nil {
		c.JWKS = NewJWKSController(issuer)
	}
	return c
}

const basicChallenge = `Basic realm="codeflow"`

// clientCredentials Authorization: Basic gana sobre el body (RFC 6749 §2.3.1).
// Las credenciales en Basic vienen form-urlencoded.
func clientCredentials(r *http.Request) dto.ClientCredentials {
	if id, secret, ok := r.BasicAuth(); ok {
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
		return dto.ClientCredentials{ClientID: id, ClientSecret: secret, BasicAuth: true}
	}
	return dto.ClientCredentials{
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: r.PostForm.Get("client_secret"),
	}
}
