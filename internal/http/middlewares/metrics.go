package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/codeflow/internal/metrics"
)

// WithMetrics instrumenta requests con el patrón de ruta de chi como label, así la
// cardinalidad queda acotada a las rutas registradas.
func WithMetrics(service string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inflight := metrics.HTTPInflight.WithLabelValues(service)
			inflight.Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				inflight.Dec()
				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				method := strings.ToUpper(r.Method)
				metrics.HTTPDuration.WithLabelValues(service, method, route).Observe(time.Since(start).Seconds())
				metrics.HTTPRequests.WithLabelValues(service, method, route, strconv.Itoa(rec.Status())).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
