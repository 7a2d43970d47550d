package helpers

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP host de RemoteAddr. Es lo único que el cliente no puede elegir.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// ForwardedClientIP primer hop de X-Forwarded-For, o ClientIP si no viene.
// Usar sólo detrás de un proxy que reescriba el header: si no, es spoofeable.
func ForwardedClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if ip := strings.TrimSpace(strings.Split(xf, ",")[0]); ip != "" {
			return ip
		}
	}
	return ClientIP(r)
}
