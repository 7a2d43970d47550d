package client

import "time"

// Profile copia derivada de /userinfo.
type Profile struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SessionView GET / del client. Nunca incluye el access token.
type SessionView struct {
	State         string     `json:"state"`
	Authenticated bool       `json:"authenticated"`
	Scope         []string   `json:"scope,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Profile       *Profile   `json:"profile,omitempty"`
}

type LoginResponse struct {
	SessionID    string
	AuthorizeURL string
}
