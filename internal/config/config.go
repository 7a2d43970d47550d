// Package config carga la configuración de ambos servicios: YAML opcional, luego
// variables de entorno CODEFLOW_* (caarlos0/env), luego defaults y Validate.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/codeflow/internal/cache"
	"github.com/dropDatabas3/codeflow/internal/validation"
)

// EnvPrefix prefijo de todas las variables de entorno.
const EnvPrefix = "CODEFLOW_"

type Config struct {
	App        AppConfig        `yaml:"app" envPrefix:"APP_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	AuthServer AuthServerConfig `yaml:"authserver" envPrefix:"AUTHSERVER_"`
	Client     ClientConfig     `yaml:"client" envPrefix:"CLIENT_"`
}

type AppConfig struct {
	Env     string `yaml:"env" env:"ENV"` // dev | prod
	Version string `yaml:"version" env:"VERSION"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

type StorageConfig struct {
	Driver        string            `yaml:"driver" env:"DRIVER"` // memory | redis | postgres
	DSN           string            `yaml:"dsn" env:"DSN"`
	Prefix        string            `yaml:"prefix" env:"PREFIX"`
	SweepInterval time.Duration     `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	Redis         cache.RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

type RateConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	Max     int           `yaml:"max" env:"MAX"`
	Window  time.Duration `yaml:"window" env:"WINDOW"`
	// TrustProxy usar X-Forwarded-For como IP del client. Sólo detrás de un proxy
	// que reescriba el header; default false (RemoteAddr).
	TrustProxy bool `yaml:"trust_proxy" env:"TRUST_PROXY"`
}

type ScopeConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type RegisteredClientConfig struct {
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RedirectURIs  []string `yaml:"redirect_uris"`
	AllowedScopes []string `yaml:"allowed_scopes"`
}

type UserConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	// Password en claro sólo para demo; en prod usar PasswordHash (argon2id PHC,
	// generado con `codeflow hash-password`).
	Password     string            `yaml:"password"`
	PasswordHash string            `yaml:"password_hash"`
	Metadata     map[string]string `yaml:"metadata"`
}

type AuthServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	// Issuer URL pública del authserver (iss de los JWT).
	Issuer      string        `yaml:"issuer" env:"ISSUER"`
	CodeTTL     time.Duration `yaml:"code_ttl" env:"CODE_TTL"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	ConsentTTL  time.Duration `yaml:"consent_ttl" env:"CONSENT_TTL"`
	TokenFormat string        `yaml:"token_format" env:"TOKEN_FORMAT"` // opaque | jwt
	// SigningKey seed Ed25519 base64 (token_format=jwt). Vacío genera una efímera.
	SigningKey string                   `yaml:"signing_key" env:"SIGNING_KEY"`
	Scopes     []ScopeConfig            `yaml:"scopes"`
	Clients    []RegisteredClientConfig `yaml:"clients"`
	Users      []UserConfig             `yaml:"users"`
	Storage    StorageConfig            `yaml:"storage" envPrefix:"STORAGE_"`
	Rate       RateConfig               `yaml:"rate" envPrefix:"RATE_"`
}

type CookieConfig struct {
	Name     string `yaml:"name" env:"NAME"`
	Domain   string `yaml:"domain" env:"DOMAIN"`
	Secure   bool   `yaml:"secure" env:"SECURE"`
	SameSite string `yaml:"samesite" env:"SAMESITE"` // lax | strict | none
}

type ClientConfig struct {
	Addr         string   `yaml:"addr" env:"ADDR"`
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string   `yaml:"redirect_uri" env:"REDIRECT_URI"`
	Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
	// AuthServerURL base que ve el navegador (/authorize).
	AuthServerURL string `yaml:"authserver_url" env:"AUTHSERVER_URL"`
	// BackchannelURL base para /token, /userinfo y /revoke; default AuthServerURL.
	BackchannelURL string        `yaml:"backchannel_url" env:"BACKCHANNEL_URL"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
	StateTTL       time.Duration `yaml:"state_ttl" env:"STATE_TTL"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	// StateFallback política cuando el state no existe: reject | cookie.
	StateFallback string        `yaml:"state_fallback" env:"STATE_FALLBACK"`
	Cookie        CookieConfig  `yaml:"cookie" envPrefix:"COOKIE_"`
	Storage       StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
}

// Load lee path (si no es vacío), aplica env, defaults y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else {
		c = Demo()
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Demo es el entorno de ejemplo: un client, un usuario, ambos servicios en localhost.
func Demo() Config {
	return Config{
		AuthServer: AuthServerConfig{
			Scopes: []ScopeConfig{
				{Name: "profile", Description: "Access your username"},
				{Name: "email", Description: "Access your email address"},
				{Name: "metadata", Description: "Access your profile metadata (name, role)"},
			},
			Clients: []RegisteredClientConfig{{
				ClientID:      "client123",
				ClientSecret:  "secret123",
				RedirectURIs:  []string{"http://localhost:5001/callback"},
				AllowedScopes: []string{"profile", "email", "metadata"},
			}},
			Users: []UserConfig{{
				Username: "user",
				Email:    "user@example.com",
				Password: "password",
				Metadata: map[string]string{"firstname": "Lars", "lastname": "Jensen", "role": "admin"},
			}},
		},
		Client: ClientConfig{
			ClientID:     "client123",
			ClientSecret: "secret123",
		},
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	a := &c.AuthServer
	if a.Addr == "" {
		a.Addr = ":5000"
	}
	if a.Issuer == "" {
		a.Issuer = "http://localhost:5000"
	}
	if a.CodeTTL == 0 {
		a.CodeTTL = 10 * time.Minute
	}
	if a.TokenTTL == 0 {
		a.TokenTTL = 30 * time.Minute
	}
	if a.ConsentTTL == 0 {
		a.ConsentTTL = 5 * time.Minute
	}
	if a.TokenFormat == "" {
		a.TokenFormat = "opaque"
	}
	storageDefaults(&a.Storage, "codeflow:as")
	if a.Rate.Max == 0 {
		a.Rate.Max = 30
	}
	if a.Rate.Window == 0 {
		a.Rate.Window = time.Minute
	}

	cl := &c.Client
	if cl.Addr == "" {
		cl.Addr = ":5001"
	}
	if cl.RedirectURI == "" {
		cl.RedirectURI = "http://localhost:5001/callback"
	}
	if len(cl.Scopes) == 0 {
		cl.Scopes = []string{"profile", "email"}
	}
	if cl.AuthServerURL == "" {
		cl.AuthServerURL = "http://localhost:5000"
	}
	if cl.BackchannelURL == "" {
		cl.BackchannelURL = cl.AuthServerURL
	}
	if cl.HTTPTimeout == 0 {
		cl.HTTPTimeout = 5 * time.Second
	}
	if cl.StateTTL == 0 {
		cl.StateTTL = 10 * time.Minute
	}
	if cl.SessionTTL == 0 {
		cl.SessionTTL = 24 * time.Hour
	}
	if cl.StateFallback == "" {
		cl.StateFallback = "reject"
	}
	if cl.Cookie.Name == "" {
		cl.Cookie.Name = "session_id"
	}
	if cl.Cookie.SameSite == "" {
		cl.Cookie.SameSite = "lax"
	}
	storageDefaults(&cl.Storage, "codeflow:client")
}

func storageDefaults(s *StorageConfig, prefix string) {
	if s.Driver == "" {
		s.Driver = "memory"
	}
	if s.Prefix == "" {
		s.Prefix = prefix
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = 5 * time.Minute
	}
}

// Validate junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	a := c.AuthServer
	switch a.TokenFormat {
	case "opaque", "jwt":
	default:
		add("authserver.token_format must be opaque or jwt, got %q", a.TokenFormat)
	}
	validateStorage("authserver.storage", a.Storage, add)
	if a.CodeTTL < 0 || a.TokenTTL < 0 || a.ConsentTTL < 0 {
		add("authserver ttls must be positive")
	}
	for i, sc := range a.Scopes {
		if !validation.ValidScopeName(sc.Name) {
			add("authserver.scopes[%d]: invalid scope name %q", i, sc.Name)
		}
	}
	seen := map[string]bool{}
	for i, cl := range a.Clients {
		switch {
		case cl.ClientID == "":
			add("authserver.clients[%d].client_id is required", i)
		case !validation.ValidClientID(cl.ClientID):
			add("authserver.clients[%d]: invalid client_id %q", i, cl.ClientID)
		}
		if seen[cl.ClientID] {
			add("authserver.clients[%d]: duplicate client_id %q", i, cl.ClientID)
		}
		seen[cl.ClientID] = true
		if cl.ClientSecret == "" {
			add("authserver.clients[%d].client_secret is required", i)
		}
		if len(cl.RedirectURIs) == 0 {
			add("authserver.clients[%d].redirect_uris is empty", i)
		}
		for _, u := range cl.RedirectURIs {
			if !validation.ValidRedirectURI(u) {
				add("authserver.clients[%d]: redirect_uri %q is not absolute http(s) without fragment", i, u)
			}
		}
		for _, sc := range cl.AllowedScopes {
			if !validation.ValidScopeName(sc) {
				add("authserver.clients[%d]: invalid allowed scope %q", i, sc)
			}
		}
	}
	for i, u := range a.Users {
		if u.Username == "" {
			add("authserver.users[%d].username is required", i)
		}
		if u.Password == "" && u.PasswordHash == "" {
			add("authserver.users[%d]: password or password_hash is required", i)
		}
	}

	cl := c.Client
	switch cl.StateFallback {
	case "reject", "cookie":
	default:
		add("client.state_fallback must be reject or cookie, got %q", cl.StateFallback)
	}
	switch strings.ToLower(cl.Cookie.SameSite) {
	case "lax", "strict", "none":
	default:
		add("client.cookie.samesite must be lax, strict or none")
	}
	if strings.EqualFold(cl.Cookie.SameSite, "none") && !cl.Cookie.Secure {
		add("client.cookie: samesite=none requires secure=true")
	}
	for name, u := range map[string]string{
		"client.redirect_uri": cl.RedirectURI, "client.authserver_url": cl.AuthServerURL, "client.backchannel_url": cl.BackchannelURL,
	} {
		if !absoluteURL(u) {
			add("%s %q is not an absolute URL", name, u)
		}
	}
	if !validation.ValidRedirectURI(cl.RedirectURI) {
		add("client.redirect_uri %q must be http(s) without fragment", cl.RedirectURI)
	}
	for _, sc := range cl.Scopes {
		if !validation.ValidScopeName(sc) {
			add("client.scopes: invalid scope name %q", sc)
		}
	}
	if cl.HTTPTimeout <= 0 {
		add("client.http_timeout must be positive")
	}
	validateStorage("client.storage", cl.Storage, add)
	if cl.Storage.Driver == "postgres" {
		add("client.storage.driver postgres is not supported (use memory or redis)")
	}

	return errors.Join(errs...)
}

func validateStorage(name string, s StorageConfig, add func(string, ...any)) {
	switch s.Driver {
	case "memory", "redis":
	case "postgres":
		if s.DSN == "" {
			add("%s.dsn is required for postgres", name)
		}
	default:
		add("%s.driver must be memory, redis or postgres, got %q", name, s.Driver)
	}
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
