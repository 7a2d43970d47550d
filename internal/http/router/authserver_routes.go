package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/codeflow/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/codeflow/internal/http/controllers/oauth"
	mw "github.com/dropDatabas3/codeflow/internal/http/middlewares"
	"github.com/dropDatabas3/codeflow/internal/rate"
)

type AuthServerDeps struct {
	OAuth   *oauthctrl.Controllers
	Health  *health.Controller
	Limiter rate.Limiter // nil: sin rate limit
	// TrustProxy la key del rate limit sale de X-Forwarded-For.
	TrustProxy bool
	Metrics    MetricsOptions
}

// NewAuthServerRouter rutas del authorization server.
func NewAuthServerRouter(d AuthServerDeps) http.Handler {
	r := base("authserver")
	rl := mw.RateLimitConfig{Limiter: d.Limiter}
	if d.TrustProxy {
		rl.KeyFunc = mw.ForwardedIPRateKey
	}
	limit := mw.WithRateLimit(rl)

	r.Get("/", d.Health.Banner)
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	mountMetrics(r, d.Metrics)

	a := d.OAuth.Authorize
	r.Group(func(r chi.Router) {
		r.Use(mw.WithPageSecurityHeaders(), mw.WithNoStore())
		r.Get("/authorize", a.Authorize)
		r.With(limit).Post("/authorize", a.Login)
		r.Post("/approve", a.Approve)
		r.Post("/deny", a.Deny)
		r.Get("/deny", a.DenyLink)
	})

	t := d.OAuth.Token
	r.Group(func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders(), mw.WithNoStore())
		r.With(limit).Post("/token", t.Token)
		r.Post("/revoke", t.Revoke)
		r.Post("/introspect", t.Introspect)
		r.Get("/userinfo", d.OAuth.UserInfo.UserInfo)
	})

	if d.OAuth.JWKS != nil {
		r.With(mw.WithSecurityHeaders()).Get("/.well-known/jwks.json", d.OAuth.JWKS.JWKS)
	}
	return r
}
