// Package client implementa el ClientFlowController: la app que inicia el flow, recibe
// el callback, canjea el code y consume /userinfo en nombre de cada sesión.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/codeflow/internal/audit"
	"github.com/dropDatabas3/codeflow/internal/cache"
	dto "github.com/dropDatabas3/codeflow/internal/http/dto/client"
	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	tokens "github.com/dropDatabas3/codeflow/internal/security/token"
	"github.com/dropDatabas3/codeflow/internal/store"
)

// Políticas cuando el state del callback no existe.
const (
	StateFallbackReject = "reject"
	StateFallbackCookie = "cookie"
)

const defaultHTTPTimeout = 5 * time.Second

type FlowService interface {
	// Login crea la sesión si hace falta y devuelve la URL de /authorize.
	Login(ctx context.Context, sessionID string) (dto.LoginResponse, error)
	// Callback valida el state contra la sesión de la cookie y canjea el code.
	Callback(ctx context.Context, cookieSessionID string, req dto.CallbackRequest) (string, error)
	// AccessProtectedResource llama a /userinfo con el token cacheado.
	AccessProtectedResource(ctx context.Context, sessionID string) (dto.Profile, error)
	Logout(ctx context.Context, sessionID string) error
	Session(ctx context.Context, sessionID string) (dto.SessionView, error)
	Events(sessionID string) []audit.Event
}

type FlowDeps struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Scopes         []string
	AuthServerURL  string
	BackchannelURL string
	HTTPClient     *http.Client

	States        store.StateStore
	Sessions      cache.Client
	SessionTTL    time.Duration
	StateFallback string
	Audit         *audit.Log
	Now           func() time.Time
}

type flowService struct {
	oauth       *oauth2.Config
	backchannel string
	http        *http.Client
	states      store.StateStore
	sessions    sessions
	fallback    string
	audit       *audit.Log
	now         func() time.Time
}

func NewFlowService(d FlowDeps) FlowService {
	httpc := d.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	back := d.BackchannelURL
	if back == "" {
		back = d.AuthServerURL
	}
	back = strings.TrimRight(back, "/")
	now := d.Now
	if now == nil {
		now = time.Now
	}
	fallback := d.StateFallback
	if fallback == "" {
		fallback = StateFallbackReject
	}
	al := d.Audit
	if al == nil {
		al = audit.New(d.SessionTTL, 0)
	}

	return &flowService{
		oauth: &oauth2.Config{
			ClientID:     d.ClientID,
			ClientSecret: d.ClientSecret,
			RedirectURL:  d.RedirectURI,
			Scopes:       d.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   strings.TrimRight(d.AuthServerURL, "/") + "/authorize",
				TokenURL:  back + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		backchannel: back,
		http:        httpc,
		states:      d.States,
		sessions:    sessions{c: d.Sessions, ttl: d.SessionTTL},
		fallback:    fallback,
		audit:       al,
		now:         now,
	}
}

func (s *flowService) Login(ctx context.Context, sessionID string) (dto.LoginResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.Login"))

	sess, err := s.sessions.get(ctx, sessionID)
	if cache.IsNotFound(err) {
		id, gerr := tokens.Generate(tokens.SessionBytes)
		if gerr != nil {
			return dto.LoginResponse{}, gerr
		}
		n := s.now().UTC()
		sess = &Session{ID: id, State: StateAnonymous, CreatedAt: n}
	} else if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("load session: %w", err)
	}

	state, err := s.states.Generate(ctx, sess.ID)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("generate state: %w", err)
	}

	from := sess.State
	sess.State = StateAuthorizationRequested
	if err := s.save(ctx, sess); err != nil {
		return dto.LoginResponse{}, err
	}
	s.record(ctx, sess.ID, audit.EventLoginStarted, from, sess.State, "")
	log.Info("authorization requested", logger.SessionID(sess.ID), logger.Scope(s.oauth.Scopes))

	return dto.LoginResponse{SessionID: sess.ID, AuthorizeURL: s.oauth.AuthCodeURL(state)}, nil
}

func (s *flowService) Callback(ctx context.Context, cookieSessionID string, req dto.CallbackRequest) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.Callback"))

	if req.Error != "" {
		// quemar el state aunque el flow termine acá
		sid := cookieSessionID
		if req.State != "" {
			if bound, err := s.states.Consume(ctx, req.State); err == nil && (cookieSessionID == "" || bound == cookieSessionID) {
				sid = bound
			}
		}
		if sess, err := s.sessions.get(ctx, sid); err == nil {
			from := sess.State
			sess.State = StateAnonymous
			s.saveBestEffort(ctx, sess)
			s.record(ctx, sid, audit.EventAuthorizationDeny, from, StateAnonymous, req.Error)
		}
		log.Info("authorization denied by authserver", logger.String("error", req.Error))
		return sid, &AuthorizationDeniedError{Code: req.Error, Description: req.ErrorDescription}
	}

	if req.Code == "" || req.State == "" {
		return "", ErrMissingCallbackParams
	}

	sid, err := s.states.Consume(ctx, req.State)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if s.fallback != StateFallbackCookie || cookieSessionID == "" {
			s.rejectState(ctx, cookieSessionID, "state not found")
			return "", ErrInvalidState
		}
		log.Warn("state not found, falling back to cookie session", logger.SessionID(cookieSessionID))
		sid = cookieSessionID
	case err != nil:
		return "", fmt.Errorf("consume state: %w", err)
	}

	// el state tiene que volver al mismo navegador que lo pidió
	if sid != cookieSessionID {
		s.rejectState(ctx, cookieSessionID, "state bound to another session")
		return "", ErrInvalidState
	}

	sess, err := s.sessions.get(ctx, sid)
	if cache.IsNotFound(err) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	from := sess.State
	sess.State = StateCodeReceived
	s.record(ctx, sid, audit.EventCallbackReceived, from, sess.State, "")

	tok, err := s.exchange(ctx, req.Code)
	if err != nil {
		sess.State = StateAnonymous
		sess.Token = nil
		sess.Profile = nil
		s.saveBestEffort(ctx, sess)

		var te *TokenExchangeError
		if errors.As(err, &te) {
			s.record(ctx, sid, audit.EventExchangeFailed, StateCodeReceived, StateAnonymous, te.Code)
			log.Warn("token exchange rejected", logger.SessionID(sid), logger.String("error", te.Code))
		} else {
			s.record(ctx, sid, audit.EventUpstreamFailed, StateCodeReceived, StateAnonymous, "token endpoint")
			log.Error("token endpoint unreachable", logger.SessionID(sid), logger.Err(err))
		}
		return sid, err
	}

	sess.Token = tok
	sess.Profile = nil
	sess.State = StateAuthenticated
	if err := s.save(ctx, sess); err != nil {
		return sid, err
	}
	s.record(ctx, sid, audit.EventTokenObtained, StateCodeReceived, StateAuthenticated, "")
	log.Info("access token obtained", logger.SessionID(sid), logger.Scope(tok.Scope))
	return sid, nil
}

func (s *flowService) rejectState(ctx context.Context, sid, detail string) {
	if sid == "" {
		return
	}
	var st FlowState
	if sess, err := s.sessions.get(ctx, sid); err == nil {
		st = sess.State
	}
	s.record(ctx, sid, audit.EventStateRejected, st, st, detail)
}

// exchange canjea el code. *TokenExchangeError para respuestas OAuth de error,
// ErrAuthServerUnavailable si no hubo respuesta.
func (s *flowService) exchange(ctx context.Context, code string) (*CachedToken, error) {
	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.http)

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		var ue *url.Error
		switch {
		case errors.As(err, &re):
			observeUpstream("token", "rejected", start)
			c := re.ErrorCode
			if c == "" && re.Response != nil {
				c = http.StatusText(re.Response.StatusCode)
			}
			return nil, &TokenExchangeError{Code: c, Description: re.ErrorDescription}
		case errors.As(err, &ue), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			observeUpstream("token", "unavailable", start)
			return nil, fmt.Errorf("%w: %v", ErrAuthServerUnavailable, err)
		default:
			// 200 sin access_token o JSON inválido
			observeUpstream("token", "rejected", start)
			return nil, &TokenExchangeError{Code: "invalid_response", Description: err.Error()}
		}
	}
	observeUpstream("token", "ok", start)

	scope := s.oauth.Scopes
	if raw, ok := tok.Extra("scope").(string); ok {
		scope = strings.Fields(raw)
	}
	return &CachedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		Scope:       scope,
		ExpiresAt:   tok.Expiry,
	}, nil
}

func (s *flowService) AccessProtectedResource(ctx context.Context, sessionID string) (dto.Profile, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.AccessProtectedResource"), logger.SessionID(sessionID))

	sess, err := s.sessions.get(ctx, sessionID)
	if cache.IsNotFound(err) {
		return dto.Profile{}, ErrNotAuthenticated
	}
	if err != nil {
		return dto.Profile{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Token == nil {
		if sess.State == StateExpired {
			return dto.Profile{}, ErrSessionExpired
		}
		return dto.Profile{}, ErrNotAuthenticated
	}

	if !sess.Token.ExpiresAt.IsZero() && !s.now().Before(sess.Token.ExpiresAt) {
		s.dropToken(ctx, sess, audit.EventTokenExpired, "cached token expired")
		log.Info("cached token expired")
		return dto.Profile{}, ErrSessionExpired
	}

	profile, err := s.userInfo(ctx, sess.Token)
	switch {
	case errors.Is(err, ErrSessionExpired):
		s.dropToken(ctx, sess, audit.EventTokenExpired, "userinfo rejected token")
		log.Info("access token rejected by userinfo")
		return dto.Profile{}, err
	case err != nil:
		s.dropToken(ctx, sess, audit.EventUpstreamFailed, "userinfo")
		log.Error("userinfo call failed", logger.Err(err))
		return dto.Profile{}, err
	}

	sess.Profile = &profile
	if err := s.save(ctx, sess); err != nil {
		return dto.Profile{}, err
	}
	s.record(ctx, sess.ID, audit.EventResourceAccessed, sess.State, sess.State, "")
	return profile, nil
}

func (s *flowService) dropToken(ctx context.Context, sess *Session, ev audit.EventType, detail string) {
	from := sess.State
	sess.Token = nil
	sess.Profile = nil
	sess.State = StateExpired
	s.saveBestEffort(ctx, sess)
	s.record(ctx, sess.ID, ev, from, StateExpired, detail)
}

func (s *flowService) userInfo(ctx context.Context, tok *CachedToken) (dto.Profile, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.backchannel+"/userinfo", nil)
	if err != nil {
		return dto.Profile{}, err
	}
	(&oauth2.Token{AccessToken: tok.AccessToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := s.http.Do(req)
	if err != nil {
		observeUpstream("userinfo", "unavailable", start)
		return dto.Profile{}, fmt.Errorf("%w: %v", ErrAuthServerUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		observeUpstream("userinfo", "rejected", start)
		_, _ = io.Copy(io.Discard, resp.Body)
		return dto.Profile{}, ErrSessionExpired
	default:
		observeUpstream("userinfo", "unavailable", start)
		_, _ = io.Copy(io.Discard, resp.Body)
		return dto.Profile{}, fmt.Errorf("%w: userinfo status %d", ErrAuthServerUnavailable, resp.StatusCode)
	}

	var p dto.Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		observeUpstream("userinfo", "unavailable", start)
		return dto.Profile{}, fmt.Errorf("%w: decode userinfo: %v", ErrAuthServerUnavailable, err)
	}
	observeUpstream("userinfo", "ok", start)
	return p, nil
}

func (s *flowService) Logout(ctx context.Context, sessionID string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.Logout"))

	sess, err := s.sessions.get(ctx, sessionID)
	if cache.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if sess.Token != nil {
		if err := s.revoke(ctx, sess.Token.AccessToken); err != nil {
			log.Warn("token revocation failed", logger.SessionID(sessionID), logger.Err(err))
		}
	}
	if err := s.sessions.delete(ctx, sessionID); err != nil {
		return err
	}
	s.record(ctx, sessionID, audit.EventLoggedOut, sess.State, StateLoggedOut, "")
	log.Info("session logged out", logger.SessionID(sessionID))
	return nil
}

func (s *flowService) revoke(ctx context.Context, token string) error {
	start := time.Now()
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
		"client_id":       {s.oauth.ClientID},
		"client_secret":   {s.oauth.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backchannel+"/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		observeUpstream("revoke", "unavailable", start)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		observeUpstream("revoke", "rejected", start)
		return fmt.Errorf("revoke status %d", resp.StatusCode)
	}
	observeUpstream("revoke", "ok", start)
	return nil
}

func (s *flowService) Session(ctx context.Context, sessionID string) (dto.SessionView, error) {
	sess, err := s.sessions.get(ctx, sessionID)
	if cache.IsNotFound(err) {
		return dto.SessionView{State: string(StateAnonymous)}, nil
	}
	if err != nil {
		return dto.SessionView{}, fmt.Errorf("load session: %w", err)
	}
	v := dto.SessionView{State: string(sess.State), Profile: sess.Profile}
	if sess.Token != nil {
		v.Authenticated = true
		v.Scope = sess.Token.Scope
		exp := sess.Token.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v, nil
}

func (s *flowService) Events(sessionID string) []audit.Event {
	return s.audit.Events(sessionID)
}

func (s *flowService) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.put(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// saveBestEffort para caminos de error: el resultado ya está decidido, pero un
// cache de sesiones caído tiene que verse en los logs.
func (s *flowService) saveBestEffort(ctx context.Context, sess *Session) {
	if err := s.save(ctx, sess); err != nil {
		logger.From(ctx).Warn("session save failed",
			logger.Layer("service"), logger.SessionID(sess.ID), logger.FlowState(string(sess.State)), logger.Err(err))
	}
}

func (s *flowService) record(ctx context.Context, sid string, t audit.EventType, from, to FlowState, detail string) {
	if sid == "" {
		return
	}
	s.audit.Record(ctx, sid, audit.Event{Type: t, From: string(from), To: string(to), Detail: detail})
}

func observeUpstream(endpoint, outcome string, start time.Time) {
	metrics.UpstreamCalls.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}
