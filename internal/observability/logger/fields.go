package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// Duration en milisegundos, como float para no perder sub-ms en tests locales.
func Duration(d time.Duration) zap.Field {
	return zap.Float64("duration_ms", float64(d.Microseconds())/1000)
}

// ---- Protocolo ----

// ClientID es el client_id OAuth (público, se puede loguear).
func ClientID(v string) zap.Field { return zap.String("client_id", v) }
func Subject(v string) zap.Field { return zap.String("sub", v) }
func SessionID(v string) zap.Field { return zap.String("session_id", Fingerprint(v)) }
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }
func FlowState(v string) zap.Field { return zap.String("flow_state", v) }
func Scope(v []string) zap.Field { return zap.Strings("scope", v) }

// Secret loguea sólo la huella de un code/token/state, nunca el valor.
func Secret(key, raw string) zap.Field { return zap.String(key, Fingerprint(raw)) }

// Fingerprint devuelve los primeros 8 hex de sha256(v); "" si v vacío.
func Fingerprint(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:4])
}

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer: controller, service, store.
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
