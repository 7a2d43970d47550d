package oauth

import (
	"net/http"

	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	"github.com/dropDatabas3/codeflow/internal/jwt"
)

// JWKSController publica la clave de firma de los access tokens JWT.
type JWKSController struct {
	issuer *jwt.Issuer
}

func NewJWKSController(i *jwt.Issuer) *JWKSController {
	return &JWKSController{issuer: i}
}

func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	helpers.WriteJSON(w, http.StatusOK, c.issuer.JWKS())
}
