package oauth

import (
	"slices"
	"strings"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
)

// ScopeMetadata habilita el campo extendido "metadata" en userinfo.
const ScopeMetadata = "metadata"

// ScopeCatalog scopes que el servidor conoce, con su texto para la pantalla de
// consentimiento. Vacío: se acepta cualquier scope.
type ScopeCatalog struct {
	order []string
	desc  map[string]string
}

func NewScopeCatalog(views []dto.ScopeView) ScopeCatalog {
	c := ScopeCatalog{desc: make(map[string]string, len(views))}
	for _, v := range views {
		if _, dup := c.desc[v.Name]; dup || v.Name == "" {
			continue
		}
		c.order = append(c.order, v.Name)
		c.desc[v.Name] = v.Description
	}
	return c
}

func (c ScopeCatalog) Known(scope []string) bool {
	if len(c.desc) == 0 {
		return true
	}
	for _, s := range scope {
		if _, ok := c.desc[s]; !ok {
			return false
		}
	}
	return true
}

// Describe filas para el consentimiento, en el orden pedido.
func (c ScopeCatalog) Describe(scope []string) []dto.ScopeView {
	out := make([]dto.ScopeView, 0, len(scope))
	for _, s := range scope {
		d := c.desc[s]
		if d == "" {
			d = s
		}
		out = append(out, dto.ScopeView{Name: s, Description: d})
	}
	return out
}

// ParseScope separa por espacios y quita duplicados conservando el orden.
func ParseScope(raw string) []string {
	out := []string{}
	for _, s := range strings.Fields(raw) {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Intersect devuelve los elementos de requested presentes en granted. Nunca agrega
// scopes que no se pidieron.
func Intersect(requested, granted []string) []string {
	out := []string{}
	for _, s := range requested {
		if slices.Contains(granted, s) {
			out = append(out, s)
		}
	}
	return out
}
