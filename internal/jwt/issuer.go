// Package jwt implementa el formato "jwt" de access token: EdDSA firmado, verificado
// localmente antes de consultar el registro.
package jwt

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/codeflow/internal/store"
)

// Issuer firma y verifica access tokens. Implementa store.Minter.
type Issuer struct {
	Iss  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	kid  string
}

var _ store.Minter = (*Issuer)(nil)

func NewIssuer(iss string, priv ed25519.PrivateKey) *Issuer {
	pub := priv.Public().(ed25519.PublicKey)
	return &Issuer{Iss: iss, priv: priv, pub: pub, kid: KeyID(pub)}
}

// AccessClaims claims del access token. aud es el client_id.
type AccessClaims struct {
	Scope string `json:"scope,omitempty"`
	jwtv5.RegisteredClaims
}

// Mint firma los claims del token. jti hace único el valor aunque dos tokens
// compartan sub/iat.
func (i *Issuer) Mint(t store.AccessToken) (string, error) {
	claims := AccessClaims{
		Scope: strings.Join(t.Scope, " "),
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   t.Subject,
			Audience:  jwtv5.ClaimStrings{t.ClientID},
			IssuedAt:  jwtv5.NewNumericDate(t.IssuedAt),
			NotBefore: jwtv5.NewNumericDate(t.IssuedAt),
			ExpiresAt: jwtv5.NewNumericDate(t.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "at+jwt"
	return tk.SignedString(i.priv)
}

// Verify chequea firma, issuer y exp contra now.
func (i *Issuer) Verify(raw string, now time.Time) error {
	_, err := i.Parse(raw, now)
	return err
}

func (i *Issuer) Parse(raw string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tk, err := jwtv5.ParseWithClaims(raw, claims, i.keyfunc,
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if !tk.Valid {
		return nil, errors.New("jwt: invalid token")
	}
	return claims, nil
}

func (i *Issuer) keyfunc(t *jwtv5.Token) (any, error) {
	if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.kid {
		return nil, errors.New("jwt: unknown kid")
	}
	return i.pub, nil
}

// JWKS publica la clave de verificación (RFC 8037, OKP/Ed25519).
func (i *Issuer) JWKS() map[string]any {
	return map[string]any{
		"keys": []map[string]string{{
			"kty": "OKP",
			"crv": "Ed25519",
			"use": "sig",
			"alg": "EdDSA",
			"kid": i.kid,
			"x":   base64.RawURLEncoding.EncodeToString(i.pub),
		}},
	}
}
