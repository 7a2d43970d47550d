package errors

import (
	"fmt"
	"net/http"
)

// AppError es un error del protocolo OAuth listo para serializar:
// {"error": Code, "error_description": Description}.
type AppError struct {
	Code        string
	Description string
	HTTPStatus  int
	// WWWAuthenticate se escribe como header cuando no es vacío (401).
	WWWAuthenticate string
	// RetryAfter en segundos (429).
	RetryAfter int
	// Err causa original: se loguea, nunca se expone.
	Err error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Description)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, description string) *AppError {
	return &AppError{Code: code, Description: description, HTTPStatus: status}
}

// FromError convierte cualquier error en AppError; lo desconocido es server_error.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrServerError.WithCause(err)
}

// WithDescription devuelve una COPIA para no mutar las variables base.
func (e *AppError) WithDescription(d string) *AppError {
	n := *e
	n.Description = d
	return &n
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// WithChallenge devuelve una COPIA con WWW-Authenticate.
func (e *AppError) WithChallenge(v string) *AppError {
	n := *e
	n.WWWAuthenticate = v
	return &n
}

func (e *AppError) WithRetryAfter(seconds int) *AppError {
	n := *e
	n.RetryAfter = seconds
	return &n
}

// Códigos RFC 6749 §4.1.2.1 / §5.2, RFC 6750 §3.1.
var (
	ErrInvalidRequest = &AppError{
		Code:        "invalid_request",
		Description: "The request is missing a required parameter or is otherwise malformed.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidClient = &AppError{
		Code:        "invalid_client",
		Description: "Client authentication failed.",
		HTTPStatus:  http.StatusUnauthorized,
	}

	// ErrUnknownClient en el authorization endpoint no hay autenticación, sólo lookup.
	ErrUnknownClient = &AppError{
		Code:        "invalid_client",
		Description: "Unknown client_id.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidGrant = &AppError{
		Code:        "invalid_grant",
		Description: "The authorization code is invalid, expired, or was already used.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrUnsupportedGrantType = &AppError{
		Code:        "unsupported_grant_type",
		Description: "Only the authorization_code grant is supported.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrUnsupportedResponseType = &AppError{
		Code:        "unsupported_response_type",
		Description: "Only response_type=code is supported.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidRedirectURI = &AppError{
		Code:        "invalid_redirect_uri",
		Description: "The redirect_uri is not registered for this client.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidScope = &AppError{
		Code:        "invalid_scope",
		Description: "The requested scope is invalid or not allowed for this client.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrAccessDenied = &AppError{
		Code:        "access_denied",
		Description: "The resource owner denied the request.",
		HTTPStatus:  http.StatusForbidden,
	}

	ErrLoginFailed = &AppError{
		Code:        "access_denied",
		Description: "Invalid username or password.",
		HTTPStatus:  http.StatusUnauthorized,
	}

	ErrInvalidToken = &AppError{
		Code:            "invalid_token",
		Description:     "The access token is invalid.",
		HTTPStatus:      http.StatusUnauthorized,
		WWWAuthenticate: `Bearer error="invalid_token"`,
	}

	ErrRateLimited = &AppError{
		Code:        "rate_limited",
		Description: "Too many requests.",
		HTTPStatus:  http.StatusTooManyRequests,
	}

	ErrServerError = &AppError{
		Code:        "server_error",
		Description: "The server encountered an unexpected condition.",
		HTTPStatus:  http.StatusInternalServerError,
	}

	ErrMethodNotAllowed = &AppError{
		Code:        "invalid_request",
		Description: "Method not allowed.",
		HTTPStatus:  http.StatusMethodNotAllowed,
	}

	ErrNotFound = &AppError{
		Code:        "not_found",
		Description: "The requested resource was not found.",
		HTTPStatus:  http.StatusNotFound,
	}
)

// Errores propios del client (la app que consume el flow).
var (
	ErrInvalidState = &AppError{
		Code:        "invalid_state",
		Description: "Invalid or expired state parameter.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrMissingCallbackParams = &AppError{
		Code:        "invalid_request",
		Description: "Missing code or state parameter.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrNotAuthenticated = &AppError{
		Code:        "not_authenticated",
		Description: "No access token for this session; log in first.",
		HTTPStatus:  http.StatusUnauthorized,
	}

	ErrSessionExpired = &AppError{
		Code:        "session_expired",
		Description: "The access token expired or was revoked; log in again.",
		HTTPStatus:  http.StatusUnauthorized,
	}

	ErrTokenExchangeFailed = &AppError{
		Code:        "token_exchange_failed",
		Description: "The authorization server rejected the code exchange.",
		HTTPStatus:  http.StatusBadGateway,
	}

	ErrAuthServerUnavailable = &AppError{
		Code:        "authserver_unavailable",
		Description: "The authorization server could not be reached.",
		HTTPStatus:  http.StatusBadGateway,
	}
)
