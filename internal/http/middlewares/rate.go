package middlewares

import (
	"math"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/codeflow/internal/http/errors"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	"github.com/dropDatabas3/codeflow/internal/rate"
)

type RateLimitConfig struct {
	Limiter rate.Limiter
	// KeyFunc default: IPRateKey (RemoteAddr + path).
	KeyFunc func(r *http.Request) string
}

// WithRateLimit responde 429 cuando la ventana se agota. Si el limiter falla se deja
// pasar el request (fail-open) y se loguea.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = IPRateKey
	}
	return func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := cfg.Limiter.Allow(r.Context(), keyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				errors.WriteError(w, r, errors.ErrRateLimited.WithRetryAfter(secs))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func IPRateKey(r *http.Request) string {
	return "ip:" + helpers.ClientIP(r) + ":" + r.URL.Path
}

// ForwardedIPRateKey como IPRateKey pero con X-Forwarded-For; sólo detrás de un
// proxy confiable (authserver.rate.trust_proxy).
func ForwardedIPRateKey(r *http.Request) string {
	return "ip:" + helpers.ForwardedClientIP(r) + ":" + r.URL.Path
}
