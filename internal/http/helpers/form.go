package helpers

import (
	"net/http"
	"strings"
)

// MaxFormBytes límite del body x-www-form-urlencoded.
const MaxFormBytes = 64 << 10

// ParseForm limita el body y parsea. r.PostForm queda sólo con el body; r.Form
// mezcla body y query (body primero).
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormBytes)
	return r.ParseForm()
}

// HasFormBody true si el request trae un body de formulario.
func HasFormBody(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return r.Method == http.MethodPost && strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}

// BearerToken extrae el token de "Authorization: Bearer <t>". "" si no hay o está malformado.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
