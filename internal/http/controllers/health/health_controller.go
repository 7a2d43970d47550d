// Package health expone liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

// Check dependencia que /readyz verifica (store, cache).
type Check func(ctx context.Context) error

type Controller struct {
	service string
	version string
	checks  map[string]Check
}

func NewController(service, version string, checks map[string]Check) *Controller {
	return &Controller{service: service, version: version, checks: checks}
}

// Healthz: el proceso responde.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz: 503 si alguna dependencia falla.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(c.checks))
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed", logger.Component(name), logger.Err(err))
			results[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	helpers.WriteJSON(w, status, map[string]any{"status": state, "checks": results})
}

// Banner GET / del authserver.
func (c *Controller) Banner(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"service": c.service, "version": c.version})
}
