// Package views renderiza las páginas HTML del authserver (login y consentimiento).
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
)

//go:embed templates/*.html
var files embed.FS

var pages = template.Must(template.ParseFS(files, "templates/*.html"))

// LoginPage hidden fields con los parámetros originales de /authorize.
type LoginPage struct {
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	ResponseType string
	Scopes       []dto.ScopeView
	Error        string
}

type ConsentPage struct {
	ClientID string
	Subject  string
	Ticket   string
	Scopes   []dto.ScopeView
}

func RenderLogin(w http.ResponseWriter, status int, p LoginPage) error {
	return render(w, status, "login.html", p)
}

func RenderConsent(w http.ResponseWriter, status int, p ConsentPage) error {
	return render(w, status, "consent.html", p)
}

// render ejecuta en un buffer: si el template falla no queda una respuesta a medias.
func render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
