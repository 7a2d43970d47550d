package middlewares

import (
	"net/http"
	"strings"
)

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	// Las páginas de login/consent usan estilos inline. Sin form-action: el submit de
	// consent redirige al origin del client y algunos navegadores lo bloquearían.
	pageCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'"
)

// WithSecurityHeaders cabeceras por defecto para endpoints JSON.
func WithSecurityHeaders() Middleware { return securityHeaders(apiCSP) }

// WithPageSecurityHeaders variante para las páginas HTML.
func WithPageSecurityHeaders() Middleware { return securityHeaders(pageCSP) }

func securityHeaders(csp string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", csp)
			if isHTTPS(r) {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithNoStore agrega Cache-Control: no-store (token, userinfo, páginas con tickets).
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
