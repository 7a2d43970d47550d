package client

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCallbackParams = errors.New("callback requires code and state")
	ErrInvalidState          = errors.New("invalid or expired state")
	ErrNotAuthenticated      = errors.New("session has no access token")
	ErrSessionExpired        = errors.New("access token expired or revoked")
	ErrAuthServerUnavailable = errors.New("authorization server unreachable")

	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrTokenExchange       = errors.New("token exchange rejected")
)

// AuthorizationDeniedError el authserver volvió con ?error=...
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Code, e.Description)
	}
	return "authorization denied: " + e.Code
}

func (e *AuthorizationDeniedError) Is(target error) bool { return target == ErrAuthorizationDenied }

// TokenExchangeError /token respondió con un error OAuth.
type TokenExchangeError struct {
	Code        string
	Description string
}

func (e *TokenExchangeError) Error() string {
	return "token exchange rejected: " + e.Code
}

func (e *TokenExchangeError) Is(target error) bool { return target == ErrTokenExchange }
