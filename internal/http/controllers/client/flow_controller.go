// Package client contiene los controllers HTTP de la app client.
package client

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/client"
	httperrors "github.com/dropDatabas3/codeflow/internal/http/errors"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	svc "github.com/dropDatabas3/codeflow/internal/http/services/client"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

type FlowController struct {
	service svc.FlowService
	cookie  helpers.CookieOptions
}

func NewFlowController(s svc.FlowService, cookie helpers.CookieOptions) *FlowController {
	if cookie.Name == "" {
		cookie.Name = "session_id"
	}
	return &FlowController{service: s, cookie: cookie}
}

// Home GET /: vista de la sesión actual.
func (c *FlowController) Home(w http.ResponseWriter, r *http.Request) {
	view, err := c.service.Session(r.Context(), c.sessionID(r))
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, view)
}

// Login GET /login: cookie de sesión y redirect a /authorize.
func (c *FlowController) Login(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Login(r.Context(), c.sessionID(r))
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return
	}
	http.SetCookie(w, helpers.BuildSessionCookie(c.cookie, res.SessionID))
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.AuthorizeURL, http.StatusFound)
}

// Callback GET|POST /callback. Un solo origen por request: el body si trae
// code, state o error; si no, la query.
func (c *FlowController) Callback(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if helpers.HasFormBody(r) {
		if err := helpers.ParseForm(w, r); err != nil {
			httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("malformed form body"))
			return
		}
		if dto.CarriesCallback(r.PostForm) {
			values = r.PostForm
		}
	}

	_, err := c.service.Callback(r.Context(), c.sessionID(r), dto.CallbackRequestFrom(values))
	if err != nil {
		httperrors.WriteError(w, r, mapFlowError(err))
		return
	}
	http.Redirect(w, r, "/protected", http.StatusSeeOther)
}

// Protected GET /protected: perfil vía /userinfo.
func (c *FlowController) Protected(w http.ResponseWriter, r *http.Request) {
	p, err := c.service.AccessProtectedResource(r.Context(), c.sessionID(r))
	if err != nil {
		httperrors.WriteError(w, r, mapFlowError(err))
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, p)
}

// Logout GET /logout.
func (c *FlowController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Logout(r.Context(), c.sessionID(r)); err != nil {
		logger.From(r.Context()).Error("logout failed", logger.Layer("controller"), logger.Err(err))
	}
	http.SetCookie(w, helpers.BuildDeletionCookie(c.cookie))
	http.Redirect(w, r, "/", http.StatusFound)
}

// Events GET /session/events: trail de auditoría de esta sesión.
func (c *FlowController) Events(w http.ResponseWriter, r *http.Request) {
	sid := c.sessionID(r)
	if sid == "" {
		httperrors.WriteError(w, r, httperrors.ErrNotAuthenticated.WithDescription("no session cookie"))
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, map[string]any{"events": c.service.Events(sid)})
}

func (c *FlowController) sessionID(r *http.Request) string {
	return helpers.CookieValue(r, c.cookie.Name)
}

func mapFlowError(err error) error {
	var denied *svc.AuthorizationDeniedError
	var exch *svc.TokenExchangeError
	switch {
	case errors.As(err, &denied):
		e := httperrors.ErrAccessDenied
		if denied.Description != "" {
			e = e.WithDescription(denied.Description)
		}
		if denied.Code != "" && denied.Code != e.Code {
			e = httperrors.New(http.StatusBadRequest, denied.Code, e.Description)
		}
		return e
	case errors.Is(err, svc.ErrMissingCallbackParams):
		return httperrors.ErrMissingCallbackParams
	case errors.Is(err, svc.ErrInvalidState):
		return httperrors.ErrInvalidState
	case errors.As(err, &exch):
		return httperrors.ErrTokenExchangeFailed.WithDescription("The authorization server rejected the code exchange: " + exch.Code).WithCause(err)
	case errors.Is(err, svc.ErrAuthServerUnavailable):
		return httperrors.ErrAuthServerUnavailable.WithCause(err)
	case errors.Is(err, svc.ErrNotAuthenticated):
		return httperrors.ErrNotAuthenticated
	case errors.Is(err, svc.ErrSessionExpired):
		return httperrors.ErrSessionExpired
	default:
		return httperrors.ErrServerError.WithCause(err)
	}
}
