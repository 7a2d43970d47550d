package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	clientctrl "github.com/dropDatabas3/codeflow/internal/http/controllers/client"
	"github.com/dropDatabas3/codeflow/internal/http/controllers/health"
	mw "github.com/dropDatabas3/codeflow/internal/http/middlewares"
)

type ClientDeps struct {
	Flow    *clientctrl.FlowController
	Health  *health.Controller
	Metrics MetricsOptions
}

// NewClientRouter rutas de la app client.
func NewClientRouter(d ClientDeps) http.Handler {
	r := base("client")

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	mountMetrics(r, d.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders(), mw.WithNoStore())
		r.Get("/", d.Flow.Home)
		r.Get("/login", d.Flow.Login)
		r.Get("/callback", d.Flow.Callback)
		r.Post("/callback", d.Flow.Callback)
		r.Get("/protected", d.Flow.Protected)
		r.Get("/logout", d.Flow.Logout)
		r.Get("/session/events", d.Flow.Events)
	})
	return r
}
