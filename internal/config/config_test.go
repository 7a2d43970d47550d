package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "codeflow.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDemoDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":5000", c.AuthServer.Addr)
	require.Equal(t, 10*time.Minute, c.AuthServer.CodeTTL)
	require.Equal(t, 30*time.Minute, c.AuthServer.TokenTTL)
	require.Equal(t, "opaque", c.AuthServer.TokenFormat)
	require.Equal(t, "memory", c.AuthServer.Storage.Driver)
	require.Len(t, c.AuthServer.Clients, 1)
	require.Equal(t, "client123", c.AuthServer.Clients[0].ClientID)

	require.Equal(t, ":5001", c.Client.Addr)
	require.Equal(t, "reject", c.Client.StateFallback)
	require.Equal(t, "session_id", c.Client.Cookie.Name)
	require.Equal(t, []string{"profile", "email"}, c.Client.Scopes)
	require.Equal(t, 5*time.Second, c.Client.HTTPTimeout)
	require.Equal(t, c.Client.AuthServerURL, c.Client.BackchannelURL)
}

func TestLoadYAML(t *testing.T) {
	p := writeYAML(t, `
authserver:
  code_ttl: 2m
  token_format: jwt
  storage:
    driver: redis
    redis:
      addr: redis:6379
  clients:
    - client_id: app
      client_secret: s3cret
      redirect_uris: ["https://app.example/cb"]
  users:
    - username: alice
      password: pw
client:
  client_id: app
  client_secret: s3cret
  redirect_uri: https://app.example/cb
  state_fallback: cookie
`)
	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, c.AuthServer.CodeTTL)
	require.Equal(t, "jwt", c.AuthServer.TokenFormat)
	require.Equal(t, "redis:6379", c.AuthServer.Storage.Redis.Addr)
	require.Equal(t, "cookie", c.Client.StateFallback)
	require.Equal(t, "app", c.AuthServer.Clients[0].ClientID)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CODEFLOW_AUTHSERVER_ADDR", ":7000")
	t.Setenv("CODEFLOW_AUTHSERVER_TOKEN_TTL", "1h")
	t.Setenv("CODEFLOW_AUTHSERVER_STORAGE_REDIS_DB", "3")
	t.Setenv("CODEFLOW_CLIENT_SCOPES", "profile,email,metadata")
	t.Setenv("CODEFLOW_CLIENT_COOKIE_SECURE", "true")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7000", c.AuthServer.Addr)
	require.Equal(t, time.Hour, c.AuthServer.TokenTTL)
	require.Equal(t, 3, c.AuthServer.Storage.Redis.DB)
	require.Equal(t, []string{"profile", "email", "metadata"}, c.Client.Scopes)
	require.True(t, c.Client.Cookie.Secure)
}

func TestValidateCollectsErrors(t *testing.T) {
	p := writeYAML(t, `
authserver:
  token_format: paseto
  storage:
    driver: postgres
  clients:
    - client_id: app
      redirect_uris: ["/relative"]
client:
  state_fallback: maybe
  cookie:
    samesite: none
`)
	_, err := Load(p)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "token_format")
	require.Contains(t, msg, "dsn is required")
	require.Contains(t, msg, "client_secret is required")
	require.Contains(t, msg, "not absolute")
	require.Contains(t, msg, "state_fallback")
	require.Contains(t, msg, "requires secure=true")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadScopesAndRedirects(t *testing.T) {
	p := writeYAML(t, `
authserver:
  scopes:
    - name: "Bad Scope"
  clients:
    - client_id: "a:b"
      client_secret: s
      redirect_uris: ["https://app.example/cb#frag"]
      allowed_scopes: ["profile", "x;y"]
`)
	_, err := Load(p)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, `invalid scope name "Bad Scope"`)
	require.Contains(t, msg, `invalid client_id "a:b"`)
	require.Contains(t, msg, "without fragment")
	require.Contains(t, msg, `invalid allowed scope "x;y"`)
}
