// Package validation reglas sintácticas de parámetros OAuth usadas al cargar
// config (catálogo de scopes, clients registrados).
package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// Nombre de scope: minúsculas, empieza y termina en [a-z0-9], en el medio
// también [:_.-]. 1..64 chars. Sin espacios (el separador del parámetro scope).
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// client_id: VSCHAR imprimible sin espacios ni ':' (rompería Basic auth).
var clientIDRe = regexp.MustCompile(`^[\x21-\x39\x3b-\x7e]{1,128}$`)

func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

func ValidClientID(id string) bool {
	return clientIDRe.MatchString(id)
}

// ValidRedirectURI acepta URIs absolutas http/https sin fragmento (RFC 6749 §3.1.2).
// La query está permitida y se preserva al agregar code/state.
func ValidRedirectURI(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Fragment != "" || strings.Contains(raw, "#") {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
