package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Masked loguea un identificador de persona (username, email) recortado:
// "jdoe@example.com" -> "j…@e….com", "user" -> "u…r".
func Masked(key, v string) zap.Field { return zap.String(key, Mask(v)) }

func Mask(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		switch {
		case s == "":
			return ""
		case len(s) <= 3:
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	parts := strings.Split(dom, ".")
	if len(parts[0]) > 1 {
		parts[0] = parts[0][:1] + "…"
	}
	return user + "@" + strings.Join(parts, ".")
}
