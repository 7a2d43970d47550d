// Package router arma los routers chi de ambos servicios.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/codeflow/internal/http/errors"
	mw "github.com/dropDatabas3/codeflow/internal/http/middlewares"
	"github.com/dropDatabas3/codeflow/internal/metrics"
)

// MetricsOptions /metrics se monta sólo si Enabled.
type MetricsOptions struct {
	Enabled bool
	Path    string
}

// base middleware chain común: recover, request id, logging, métricas.
func base(service string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(service),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrMethodNotAllowed)
	})
	return r
}

func mountMetrics(r chi.Router, m MetricsOptions) {
	if !m.Enabled {
		return
	}
	path := m.Path
	if path == "" {
		path = "/metrics"
	}
	r.Method(http.MethodGet, path, metrics.Handler())
}
