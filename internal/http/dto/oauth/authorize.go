package oauth

import "net/url"

// AuthorizeRequest parámetros de GET /authorize (y los hidden fields del login).
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
}

func AuthorizeRequestFrom(v url.Values) AuthorizeRequest {
	return AuthorizeRequest{
		ResponseType: v.Get("response_type"),
		ClientID:     v.Get("client_id"),
		RedirectURI:  v.Get("redirect_uri"),
		Scope:        v.Get("scope"),
		State:        v.Get("state"),
	}
}

// LoginRequest POST /authorize: los parámetros originales más credenciales.
type LoginRequest struct {
	AuthorizeRequest
	Username string
	Password string
}

// ConsentTicket vive en el cache entre login y approve/deny. Un solo uso.
type ConsentTicket struct {
	ClientID    string   `json:"client_id"`
	RedirectURI string   `json:"redirect_uri"`
	Scope       []string `json:"scope"`
	State       string   `json:"state,omitempty"`
	Subject     string   `json:"sub"`
}

// ConsentDecision POST /approve y POST /deny.
type ConsentDecision struct {
	Ticket string
	// GrantedScope subset elegido en la pantalla; vacío = todo lo pedido.
	GrantedScope []string
}

// ApproveRequest resultado del consentimiento: (approved, subject, granted_scope).
type ApproveRequest struct {
	ClientID     string
	RedirectURI  string
	Scope        []string
	GrantedScope []string
	State        string
	Subject      string
}

type DenyRequest struct {
	RedirectURI string
	State       string
}

// ScopeView fila de la pantalla de consentimiento.
type ScopeView struct {
	Name        string
	Description string
}
