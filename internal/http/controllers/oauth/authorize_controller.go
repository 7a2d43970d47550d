package oauth

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/codeflow/internal/http/errors"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	svc "github.com/dropDatabas3/codeflow/internal/http/services/oauth"
	"github.com/dropDatabas3/codeflow/internal/http/views"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

// AuthorizeController maneja /authorize, /approve y /deny.
type AuthorizeController struct {
	service svc.AuthorizeService
}

func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize GET /authorize: valida y muestra el login.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := dto.AuthorizeRequestFrom(r.URL.Query())

	logger.From(ctx).Debug("authorize request",
		logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"),
		logger.ClientID(req.ClientID), logger.String("scope", req.Scope))

	a, err := c.service.Validate(ctx, req)
	if err != nil {
		c.writeValidationError(w, r, a, err)
		return
	}
	c.renderLogin(w, r, http.StatusOK, a, "")
}

// Login POST /authorize: credenciales del resource owner.
func (c *AuthorizeController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Login"))

	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("malformed form body"))
		return
	}
	req := dto.LoginRequest{
		AuthorizeRequest: dto.AuthorizeRequestFrom(r.PostForm),
		Username:         strings.TrimSpace(r.PostForm.Get("username")),
		Password:         r.PostForm.Get("password"),
	}

	ticket, a, err := c.service.Authenticate(ctx, req)
	switch {
	case errors.Is(err, svc.ErrLoginFailed):
		c.renderLogin(w, r, http.StatusUnauthorized, a, httperrors.ErrLoginFailed.Description)
		return
	case err != nil:
		c.writeValidationError(w, r, a, err)
		return
	}

	if err := views.RenderConsent(w, http.StatusOK, views.ConsentPage{
		ClientID: a.Client.ID,
		Subject:  req.Username,
		Ticket:   ticket,
		Scopes:   c.service.Scopes().Describe(a.Scope),
	}); err != nil {
		log.Error("render consent failed", logger.Err(err))
	}
}

// Approve POST /approve.
func (c *AuthorizeController) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, ok := c.ticket(w, r)
	if !ok {
		return
	}

	var granted []string
	if r.PostForm.Has("scope_choice") {
		granted = append([]string{}, r.PostForm["scope"]...)
	}

	loc, err := c.service.Approve(ctx, dto.ApproveRequest{
		ClientID:     t.ClientID,
		RedirectURI:  t.RedirectURI,
		Scope:        t.Scope,
		GrantedScope: granted,
		State:        t.State,
		Subject:      t.Subject,
	})
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return
	}
	redirect(w, r, loc)
}

// Deny POST /deny (con ticket).
func (c *AuthorizeController) Deny(w http.ResponseWriter, r *http.Request) {
	t, ok := c.ticket(w, r)
	if !ok {
		return
	}
	loc, err := c.service.Deny(r.Context(), dto.DenyRequest{RedirectURI: t.RedirectURI, State: t.State})
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return
	}
	redirect(w, r, loc)
}

// DenyLink GET /deny?client_id=...&redirect_uri=...&state=... El redirect_uri se
// valida igual que en /authorize antes de redirigir.
func (c *AuthorizeController) DenyLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	a, err := c.service.Validate(ctx, dto.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		State:        q.Get("state"),
	})
	if err != nil {
		c.writeValidationError(w, r, a, err)
		return
	}
	loc, err := c.service.Deny(ctx, dto.DenyRequest{RedirectURI: a.RedirectURI, State: a.State})
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return
	}
	redirect(w, r, loc)
}

func (c *AuthorizeController) ticket(w http.ResponseWriter, r *http.Request) (dto.ConsentTicket, bool) {
	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("malformed form body"))
		return dto.ConsentTicket{}, false
	}
	t, err := c.service.Ticket(r.Context(), r.PostForm.Get("ticket"))
	switch {
	case errors.Is(err, svc.ErrTicketNotFound):
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("consent ticket expired or already used"))
		return dto.ConsentTicket{}, false
	case err != nil:
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
		return dto.ConsentTicket{}, false
	}
	return t, true
}

func (c *AuthorizeController) writeValidationError(w http.ResponseWriter, r *http.Request, a svc.Authorization, err error) {
	switch {
	case errors.Is(err, svc.ErrUnsupportedResponseType):
		httperrors.WriteError(w, r, httperrors.ErrUnsupportedResponseType)
	case errors.Is(err, svc.ErrUnknownClient):
		httperrors.WriteError(w, r, httperrors.ErrUnknownClient)
	case errors.Is(err, svc.ErrInvalidRedirect):
		httperrors.WriteError(w, r, httperrors.ErrInvalidRedirectURI)
	case errors.Is(err, svc.ErrRedirectRequired):
		httperrors.WriteError(w, r, httperrors.ErrInvalidRequest.WithDescription("redirect_uri is required when the client has several registered"))
	case errors.Is(err, svc.ErrInvalidScope):
		// redirect_uri ya validado: el error vuelve al client
		loc, rerr := c.service.ErrorRedirect(a.RedirectURI, httperrors.ErrInvalidScope.Code, a.State)
		if rerr != nil {
			httperrors.WriteError(w, r, httperrors.ErrInvalidScope)
			return
		}
		redirect(w, r, loc)
	default:
		httperrors.WriteError(w, r, httperrors.ErrServerError.WithCause(err))
	}
}

func (c *AuthorizeController) renderLogin(w http.ResponseWriter, r *http.Request, status int, a svc.Authorization, msg string) {
	err := views.RenderLogin(w, status, views.LoginPage{
		ClientID:     a.Client.ID,
		RedirectURI:  a.RedirectURI,
		Scope:        strings.Join(a.Scope, " "),
		State:        a.State,
		ResponseType: "code",
		Scopes:       c.service.Scopes().Describe(a.Scope),
		Error:        msg,
	})
	if err != nil {
		logger.From(r.Context()).Error("render login failed", logger.Err(err))
	}
}

func redirect(w http.ResponseWriter, r *http.Request, loc string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, loc, http.StatusFound)
}
