package oauth

// TokenRequest POST /token (application/x-www-form-urlencoded).
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	// BasicAuth credenciales vinieron por Authorization: Basic.
	BasicAuth bool
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// ClientCredentials autenticación del client en /revoke e /introspect.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	BasicAuth    bool
}

// RevokeRequest RFC 7009.
type RevokeRequest struct {
	ClientCredentials
	Token         string
	TokenTypeHint string
}

// IntrospectResponse RFC 7662. Inactivo => sólo {"active": false}.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Subject   string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}
