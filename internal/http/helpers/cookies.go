/*
cookies.go: cookie de sesión del client (session_id)

El valor es un id opaco de 24 bytes; el contenido de la sesión vive en el cache del
servidor, nunca en la cookie. Defaults: HttpOnly, Path "/", SameSite Lax.
SameSite=None sin Secure lo rechaza config.Validate, acá no se corrige.

La cookie de borrado repite Name/Domain/Path/SameSite/Secure: si no coinciden el
navegador no la sobreescribe.
*/
package helpers

import (
	"net/http"
	"strings"
	"time"
)

type CookieOptions struct {
	Name     string
	Domain   string
	SameSite string
	Secure   bool
	TTL      time.Duration
}

func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func BuildSessionCookie(o CookieOptions, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: ParseSameSite(o.SameSite),
	}
	if o.TTL > 0 {
		c.Expires = time.Now().UTC().Add(o.TTL)
		c.MaxAge = int(o.TTL.Seconds())
	}
	return c
}

func BuildDeletionCookie(o CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		Domain:   o.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: ParseSameSite(o.SameSite),
	}
}

// CookieValue "" si la cookie no viene.
func CookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
